package user_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/database/databasetest"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/message"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/user"
)

func strPtr(s string) *string { return &s }

func setupUserRepo(t *testing.T) user.Repository {
	t.Helper()
	return user.NewRepository(databasetest.Open(t))
}

func TestUpsertByClerkID_CreatesThenReplaces(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	created, err := repo.UpsertByClerkID(ctx, user.Profile{
		ClerkUserID: "user_1",
		Email:       strPtr("a@x.com"),
		FirstName:   strPtr("Ada"),
		LastName:    strPtr("Lovelace"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "a@x.com", *created.Email)

	updated, err := repo.UpsertByClerkID(ctx, user.Profile{
		ClerkUserID: "user_1",
		Email:       strPtr("b@x.com"),
		PhoneNumber: strPtr("+15550001111"),
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "b@x.com", *updated.Email)
	assert.Equal(t, "+15550001111", *updated.PhoneNumber)
	assert.Nil(t, updated.FirstName, "explicit nil must clear the stored value")
	assert.Nil(t, updated.LastName)
}

func TestUpsertByClerkID_AdoptsWhatsAppUser(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	phoneUser, err := repo.UpsertByPhone(ctx, "+15550002222")
	require.NoError(t, err)

	linked, err := repo.UpsertByClerkID(ctx, user.Profile{
		ClerkUserID: "user_2",
		Email:       strPtr("wa@x.com"),
		PhoneNumber: strPtr("+15550002222"),
	})
	require.NoError(t, err)

	assert.Equal(t, phoneUser.ID, linked.ID, "the phone-keyed row must be reused")
	require.NotNil(t, linked.ClerkUserID)
	assert.Equal(t, "user_2", *linked.ClerkUserID)
	assert.Equal(t, "wa@x.com", *linked.Email)
	assert.Equal(t, "+15550002222", *linked.PhoneNumber)
}

func TestUpsertByClerkID_MergesPlaceholderIntoWhatsAppUser(t *testing.T) {
	pool := databasetest.Open(t)
	repo := user.NewRepository(pool)
	orgs := organization.NewRepository(pool)
	members := membership.NewRepository(pool)
	messages := message.NewRepository(pool)
	ctx := context.Background()

	// A membership event arrived before user.created and left a placeholder.
	require.NoError(t, repo.EnsureByClerkID(ctx, "user_4"))
	placeholder, err := repo.FindByClerkID(ctx, "user_4")
	require.NoError(t, err)
	org, err := orgs.UpsertByClerkID(ctx, organization.Profile{ClerkOrganizationID: "org_4", Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	_, err = members.Upsert(ctx, placeholder.ID, org.ID, "org:admin", nil)
	require.NoError(t, err)

	phoneUser, err := repo.UpsertByPhone(ctx, "+15550004444")
	require.NoError(t, err)
	require.NoError(t, messages.Create(ctx, &message.Message{UserID: phoneUser.ID, Role: message.RoleUser, Content: "hola"}))

	linked, err := repo.UpsertByClerkID(ctx, user.Profile{ClerkUserID: "user_4", PhoneNumber: strPtr("+15550004444")})
	require.NoError(t, err)
	assert.Equal(t, phoneUser.ID, linked.ID)

	_, err = repo.GetByID(ctx, placeholder.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound, "the placeholder must be merged away")

	m, err := members.Get(ctx, linked.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "org:admin", m.Role)

	history, err := messages.ListByUser(ctx, linked.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpsertByClerkID_PhoneOwnedByAnotherIdentity(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	owner, err := repo.UpsertByClerkID(ctx, user.Profile{ClerkUserID: "user_5", PhoneNumber: strPtr("+15550005555")})
	require.NoError(t, err)

	other, err := repo.UpsertByClerkID(ctx, user.Profile{
		ClerkUserID: "user_6",
		Email:       strPtr("six@x.com"),
		PhoneNumber: strPtr("+15550005555"),
	})
	require.NoError(t, err)

	assert.NotEqual(t, owner.ID, other.ID)
	assert.Nil(t, other.PhoneNumber, "a phone held by another identity is not stored")
	assert.Equal(t, "six@x.com", *other.Email)

	found, err := repo.FindByPhone(ctx, "+15550005555")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)
}

func TestFindByClerkID_NotFound(t *testing.T) {
	repo := setupUserRepo(t)

	_, err := repo.FindByClerkID(context.Background(), "user_missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUpsertByPhone_ReturnsExisting(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	first, err := repo.UpsertByPhone(ctx, "+15550003333")
	require.NoError(t, err)
	second, err := repo.UpsertByPhone(ctx, "+15550003333")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.ClerkUserID)

	found, err := repo.FindByPhone(ctx, "+15550003333")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestDeleteByClerkID(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	deleted, err := repo.DeleteByClerkID(ctx, "user_never_seen")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.UpsertByClerkID(ctx, user.Profile{ClerkUserID: "user_3"})
	require.NoError(t, err)

	deleted, err = repo.DeleteByClerkID(ctx, "user_3")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.FindByClerkID(ctx, "user_3")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	assert.True(t, (&user.User{ClerkUserID: strPtr("user_p")}).IsPlaceholder())
	assert.False(t, (&user.User{Email: strPtr("a@x.com")}).IsPlaceholder())
}

func TestEnsureByClerkID_DoesNotOverwrite(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureByClerkID(ctx, "user_4"))
	placeholder, err := repo.FindByClerkID(ctx, "user_4")
	require.NoError(t, err)
	assert.True(t, placeholder.IsPlaceholder())

	_, err = repo.UpsertByClerkID(ctx, user.Profile{ClerkUserID: "user_4", Email: strPtr("d@x.com")})
	require.NoError(t, err)

	require.NoError(t, repo.EnsureByClerkID(ctx, "user_4"))
	populated, err := repo.FindByClerkID(ctx, "user_4")
	require.NoError(t, err)
	assert.Equal(t, placeholder.ID, populated.ID)
	require.NotNil(t, populated.Email)
	assert.Equal(t, "d@x.com", *populated.Email)
}
