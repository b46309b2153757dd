package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/apikey"
	"github.com/meseeks-ai/meseeks/internal/auth"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/message"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/product"
	"github.com/meseeks-ai/meseeks/internal/user"
)

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func withIdentity(req *http.Request, identity *auth.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func sessionIdentity(userID *uuid.UUID) *auth.Identity {
	return &auth.Identity{Method: auth.MethodSession, ClerkUserID: "user_2abc", UserID: userID}
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "expected error object, got %v", env["error"])
	return errObj["code"].(string)
}

func dataObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := parseEnvelope(t, w)
	data, ok := env["data"].(map[string]interface{})
	require.True(t, ok, "expected data object, got %v", env["data"])
	return data
}

func dataList(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	env := parseEnvelope(t, w)
	data, ok := env["data"].([]interface{})
	require.True(t, ok, "expected data array, got %v", env["data"])
	return data
}

// --- Mock Organization Repository ---

type mockOrgRepo struct {
	createFn       func(ctx context.Context, o *organization.Organization) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	listByMemberFn func(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	deleted        []uuid.UUID
}

func (m *mockOrgRepo) Create(ctx context.Context, o *organization.Organization) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	return nil
}

func (m *mockOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, organization.ErrOrganizationNotFound
}

func (m *mockOrgRepo) List(context.Context) ([]organization.Organization, error) {
	return nil, nil
}

func (m *mockOrgRepo) ListByMember(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error) {
	if m.listByMemberFn != nil {
		return m.listByMemberFn(ctx, userID)
	}
	return []organization.Organization{}, nil
}

func (m *mockOrgRepo) FindByClerkID(context.Context, string) (*organization.Organization, error) {
	return nil, organization.ErrOrganizationNotFound
}

func (m *mockOrgRepo) UpsertByClerkID(context.Context, organization.Profile) (*organization.Organization, error) {
	return nil, nil
}

func (m *mockOrgRepo) EnsureByClerkID(context.Context, string) error { return nil }

func (m *mockOrgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockOrgRepo) DeleteByClerkID(context.Context, string) (bool, error) { return false, nil }

// --- Mock Membership Repository ---

type mockMembershipRepo struct {
	upsertFn      func(ctx context.Context, userID, organizationID uuid.UUID, role string, clerkMembershipID *string) (*membership.Membership, error)
	updateRoleFn  func(ctx context.Context, userID, organizationID uuid.UUID, role string) (*membership.Membership, error)
	listByOrgFn   func(ctx context.Context, organizationID uuid.UUID) ([]membership.Membership, error)
	listByUserFn  func(ctx context.Context, userID uuid.UUID) ([]membership.Membership, error)
	getFn         func(ctx context.Context, userID, organizationID uuid.UUID) (*membership.Membership, error)
	deleteFn      func(ctx context.Context, userID, organizationID uuid.UUID) (int64, error)
	upsertedRoles []string
	upsertedPairs [][2]uuid.UUID
}

func (m *mockMembershipRepo) Upsert(ctx context.Context, userID, organizationID uuid.UUID, role string, clerkMembershipID *string) (*membership.Membership, error) {
	m.upsertedRoles = append(m.upsertedRoles, role)
	m.upsertedPairs = append(m.upsertedPairs, [2]uuid.UUID{userID, organizationID})
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, organizationID, role, clerkMembershipID)
	}
	return sampleMembership(userID, organizationID, role), nil
}

func (m *mockMembershipRepo) Get(ctx context.Context, userID, organizationID uuid.UUID) (*membership.Membership, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, organizationID)
	}
	return nil, membership.ErrMembershipNotFound
}

func (m *mockMembershipRepo) UpdateRole(ctx context.Context, userID, organizationID uuid.UUID, role string) (*membership.Membership, error) {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, userID, organizationID, role)
	}
	return nil, membership.ErrMembershipNotFound
}

func (m *mockMembershipRepo) DeleteByPair(ctx context.Context, userID, organizationID uuid.UUID) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, organizationID)
	}
	return 0, nil
}

func (m *mockMembershipRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]membership.Membership, error) {
	if m.listByOrgFn != nil {
		return m.listByOrgFn(ctx, organizationID)
	}
	return []membership.Membership{}, nil
}

func (m *mockMembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]membership.Membership, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []membership.Membership{}, nil
}

// --- Mock User Repository ---

type mockUserRepo struct {
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*user.User, error)
	findByClerkIDFn func(ctx context.Context, clerkUserID string) (*user.User, error)
	ensureFn        func(ctx context.Context, clerkUserID string) error
	ensured         []string
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) FindByClerkID(ctx context.Context, clerkUserID string) (*user.User, error) {
	if m.findByClerkIDFn != nil {
		return m.findByClerkIDFn(ctx, clerkUserID)
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) FindByPhone(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) UpsertByClerkID(context.Context, user.Profile) (*user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) EnsureByClerkID(ctx context.Context, clerkUserID string) error {
	m.ensured = append(m.ensured, clerkUserID)
	if m.ensureFn != nil {
		return m.ensureFn(ctx, clerkUserID)
	}
	return nil
}

func (m *mockUserRepo) UpsertByPhone(context.Context, string) (*user.User, error) { return nil, nil }

func (m *mockUserRepo) DeleteByClerkID(context.Context, string) (bool, error) { return false, nil }

// --- Mock Product Repository ---

type mockProductRepo struct {
	createFn  func(ctx context.Context, p *product.Product) error
	getByIDFn func(ctx context.Context, organizationID, id uuid.UUID) (*product.Product, error)
	listFn    func(ctx context.Context, organizationID uuid.UUID) ([]product.Product, error)
	updateFn  func(ctx context.Context, organizationID, id uuid.UUID, fields product.UpdateFields) (*product.Product, error)
	deleteFn  func(ctx context.Context, organizationID, id uuid.UUID) error
}

func (m *mockProductRepo) Create(ctx context.Context, p *product.Product) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (m *mockProductRepo) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*product.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, organizationID, id)
	}
	return nil, product.ErrProductNotFound
}

func (m *mockProductRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]product.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, organizationID)
	}
	return []product.Product{}, nil
}

func (m *mockProductRepo) Update(ctx context.Context, organizationID, id uuid.UUID, fields product.UpdateFields) (*product.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, organizationID, id, fields)
	}
	return nil, product.ErrProductNotFound
}

func (m *mockProductRepo) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, organizationID, id)
	}
	return nil
}

// --- Mock API Key Service ---

type mockAPIKeyService struct {
	createFn func(ctx context.Context, organizationID uuid.UUID, name string, expiresAt *time.Time) (*apikey.APIKey, string, error)
	listFn   func(ctx context.Context, organizationID uuid.UUID) ([]apikey.APIKey, error)
	revokeFn func(ctx context.Context, organizationID, id uuid.UUID) error
	deleteFn func(ctx context.Context, organizationID, id uuid.UUID) error
}

func (m *mockAPIKeyService) Create(ctx context.Context, organizationID uuid.UUID, name string, expiresAt *time.Time) (*apikey.APIKey, string, error) {
	return m.createFn(ctx, organizationID, name, expiresAt)
}

func (m *mockAPIKeyService) List(ctx context.Context, organizationID uuid.UUID) ([]apikey.APIKey, error) {
	return m.listFn(ctx, organizationID)
}

func (m *mockAPIKeyService) Revoke(ctx context.Context, organizationID, id uuid.UUID) error {
	return m.revokeFn(ctx, organizationID, id)
}

func (m *mockAPIKeyService) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	return m.deleteFn(ctx, organizationID, id)
}

// --- Mock Assistant ---

type mockAssistant struct {
	replyFn   func(ctx context.Context, userID uuid.UUID, input string) (string, error)
	historyFn func(ctx context.Context, userID uuid.UUID) ([]message.Message, error)
}

func (m *mockAssistant) Reply(ctx context.Context, userID uuid.UUID, input string) (string, error) {
	return m.replyFn(ctx, userID, input)
}

func (m *mockAssistant) History(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	return m.historyFn(ctx, userID)
}

// --- Fixtures ---

func sampleOrganization(id uuid.UUID) *organization.Organization {
	now := time.Now().UTC()
	clerkID := "org_2abc"
	return &organization.Organization{
		ID:                  id,
		ClerkOrganizationID: &clerkID,
		Name:                "Acme",
		Slug:                "acme",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func sampleMembership(userID, organizationID uuid.UUID, role string) *membership.Membership {
	now := time.Now().UTC()
	return &membership.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
