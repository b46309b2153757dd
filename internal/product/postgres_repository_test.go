package product_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/database/databasetest"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/product"
)

func strPtr(s string) *string { return &s }

func setupRepo(t *testing.T) (product.Repository, uuid.UUID) {
	t.Helper()
	pool := databasetest.Open(t)

	o := &organization.Organization{Name: "Acme", Slug: "acme"}
	require.NoError(t, organization.NewRepository(pool).Create(context.Background(), o))
	return product.NewPostgresRepository(pool), o.ID
}

func TestCreateAndGet(t *testing.T) {
	repo, orgID := setupRepo(t)
	ctx := context.Background()

	p := &product.Product{OrganizationID: orgID, Name: "Widget", Description: strPtr("A widget"), PriceCents: 1299}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := repo.GetByID(ctx, orgID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, int64(1299), got.PriceCents)

	_, err = repo.GetByID(ctx, uuid.New(), p.ID)
	assert.ErrorIs(t, err, product.ErrProductNotFound, "other organizations cannot see the product")
}

func TestCreate_DuplicateName(t *testing.T) {
	repo, orgID := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &product.Product{OrganizationID: orgID, Name: "Widget"}))
	err := repo.Create(ctx, &product.Product{OrganizationID: orgID, Name: "Widget"})
	assert.ErrorIs(t, err, product.ErrDuplicateProductName)
}

func TestUpdate_Partial(t *testing.T) {
	repo, orgID := setupRepo(t)
	ctx := context.Background()

	p := &product.Product{OrganizationID: orgID, Name: "Widget", Description: strPtr("old"), PriceCents: 100}
	require.NoError(t, repo.Create(ctx, p))

	price := int64(250)
	updated, err := repo.Update(ctx, orgID, p.ID, product.UpdateFields{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(250), updated.PriceCents)
	assert.Equal(t, "Widget", updated.Name)
	assert.Equal(t, "old", *updated.Description)

	unchanged, err := repo.Update(ctx, orgID, p.ID, product.UpdateFields{})
	require.NoError(t, err)
	assert.Equal(t, int64(250), unchanged.PriceCents)

	_, err = repo.Update(ctx, orgID, uuid.New(), product.UpdateFields{PriceCents: &price})
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestListAndDelete(t *testing.T) {
	repo, orgID := setupRepo(t)
	ctx := context.Background()

	b := &product.Product{OrganizationID: orgID, Name: "b"}
	a := &product.Product{OrganizationID: orgID, Name: "a"}
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, a))

	list, err := repo.ListByOrganization(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	require.NoError(t, repo.Delete(ctx, orgID, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, orgID, a.ID), product.ErrProductNotFound)
}
