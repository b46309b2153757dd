package reconciler_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/user"
)

// memStore is an in-memory stand-in for the three repositories, with the
// same uniqueness and cascade rules as the schema.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*user.User
	orgs        map[uuid.UUID]*organization.Organization
	memberships map[[2]uuid.UUID]*membership.Membership

	failEnsure bool
	failRefind bool
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uuid.UUID]*user.User{},
		orgs:        map[uuid.UUID]*organization.Organization{},
		memberships: map[[2]uuid.UUID]*membership.Membership{},
	}
}

func (s *memStore) Users() *memUsers             { return (*memUsers)(s) }
func (s *memStore) Orgs() *memOrgs               { return (*memOrgs)(s) }
func (s *memStore) Memberships() *memMemberships { return (*memMemberships)(s) }

type memUsers memStore

func (s *memUsers) findLocked(clerkID string) *user.User {
	for _, u := range s.users {
		if u.ClerkUserID != nil && *u.ClerkUserID == clerkID {
			return u
		}
	}
	return nil
}

func (s *memUsers) FindByClerkID(_ context.Context, clerkID string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.findLocked(clerkID); u != nil && !(s.failRefind && u.IsPlaceholder()) {
		cp := *u
		return &cp, nil
	}
	return nil, user.ErrUserNotFound
}

func (s *memUsers) findByPhoneLocked(phone string) *user.User {
	for _, u := range s.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			return u
		}
	}
	return nil
}

// UpsertByClerkID mirrors the Postgres rules for the unique phone column: a
// row without a Clerk id that holds the phone is adopted, absorbing any row
// already keyed by the Clerk id, and a phone held by another identity is
// dropped.
func (s *memUsers) UpsertByClerkID(_ context.Context, p user.Profile) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u := s.findLocked(p.ClerkUserID)

	if p.PhoneNumber != nil {
		if owner := s.findByPhoneLocked(*p.PhoneNumber); owner != nil && owner != u {
			if owner.ClerkUserID == nil {
				if u != nil {
					s.mergeLocked(u.ID, owner.ID)
				}
				id := p.ClerkUserID
				owner.ClerkUserID = &id
				u = owner
			} else {
				p.PhoneNumber = nil
			}
		}
	}

	if u == nil {
		id := p.ClerkUserID
		u = &user.User{ID: uuid.New(), ClerkUserID: &id, CreatedAt: now}
		s.users[u.ID] = u
	}
	u.Email, u.PhoneNumber, u.FirstName, u.LastName = p.Email, p.PhoneNumber, p.FirstName, p.LastName
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (s *memUsers) mergeLocked(from, to uuid.UUID) {
	for k, m := range s.memberships {
		if k[0] != from {
			continue
		}
		delete(s.memberships, k)
		m.UserID = to
		s.memberships[[2]uuid.UUID{to, k[1]}] = m
	}
	delete(s.users, from)
}

// UpsertByPhone seeds a user the way the WhatsApp path creates one.
func (s *memUsers) UpsertByPhone(_ context.Context, phone string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByPhoneLocked(phone)
	if u == nil {
		ph := phone
		u = &user.User{ID: uuid.New(), PhoneNumber: &ph, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		s.users[u.ID] = u
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) EnsureByClerkID(_ context.Context, clerkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnsure {
		return errStore
	}
	if s.findLocked(clerkID) == nil {
		id := clerkID
		u := &user.User{ID: uuid.New(), ClerkUserID: &id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		s.users[u.ID] = u
	}
	return nil
}

func (s *memUsers) DeleteByClerkID(_ context.Context, clerkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findLocked(clerkID)
	if u == nil {
		return false, nil
	}
	delete(s.users, u.ID)
	for k := range s.memberships {
		if k[0] == u.ID {
			delete(s.memberships, k)
		}
	}
	return true, nil
}

type memOrgs memStore

func (s *memOrgs) findLocked(clerkID string) *organization.Organization {
	for _, o := range s.orgs {
		if o.ClerkOrganizationID != nil && *o.ClerkOrganizationID == clerkID {
			return o
		}
	}
	return nil
}

func (s *memOrgs) FindByClerkID(_ context.Context, clerkID string) (*organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.findLocked(clerkID); o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, organization.ErrOrganizationNotFound
}

func (s *memOrgs) UpsertByClerkID(_ context.Context, p organization.Profile) (*organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	o := s.findLocked(p.ClerkOrganizationID)
	if o == nil {
		id := p.ClerkOrganizationID
		o = &organization.Organization{ID: uuid.New(), ClerkOrganizationID: &id, CreatedAt: now}
		s.orgs[o.ID] = o
	}
	o.Name, o.Slug, o.ImageURL, o.LogoURL, o.CreatedBy = p.Name, p.Slug, p.ImageURL, p.LogoURL, p.CreatedBy
	o.UpdatedAt = now
	cp := *o
	return &cp, nil
}

func (s *memOrgs) EnsureByClerkID(_ context.Context, clerkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnsure {
		return errStore
	}
	if s.findLocked(clerkID) == nil {
		id := clerkID
		o := &organization.Organization{ID: uuid.New(), ClerkOrganizationID: &id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		s.orgs[o.ID] = o
	}
	return nil
}

func (s *memOrgs) DeleteByClerkID(_ context.Context, clerkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.findLocked(clerkID)
	if o == nil {
		return false, nil
	}
	delete(s.orgs, o.ID)
	for k := range s.memberships {
		if k[1] == o.ID {
			delete(s.memberships, k)
		}
	}
	return true, nil
}

type memMemberships memStore

func (s *memMemberships) Upsert(_ context.Context, userID, orgID uuid.UUID, role string, clerkID *string) (*membership.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{userID, orgID}
	now := time.Now()
	m, ok := s.memberships[key]
	if !ok {
		m = &membership.Membership{ID: uuid.New(), UserID: userID, OrganizationID: orgID, CreatedAt: now}
		s.memberships[key] = m
	}
	m.Role = role
	if clerkID != nil {
		m.ClerkMembershipID = clerkID
	}
	m.UpdatedAt = now
	cp := *m
	return &cp, nil
}

func (s *memMemberships) DeleteByPair(_ context.Context, userID, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{userID, orgID}
	if _, ok := s.memberships[key]; !ok {
		return 0, nil
	}
	delete(s.memberships, key)
	return 1, nil
}

// snapshot helpers

func (s *memStore) user(clerkID string) *user.User {
	u, _ := s.Users().FindByClerkID(context.Background(), clerkID)
	return u
}

func (s *memStore) org(clerkID string) *organization.Organization {
	o, _ := s.Orgs().FindByClerkID(context.Background(), clerkID)
	return o
}

func (s *memStore) allMemberships() []membership.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]membership.Membership, 0, len(s.memberships))
	for _, m := range s.memberships {
		out = append(out, *m)
	}
	return out
}

func (s *memStore) counts() (users, orgs, memberships int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.orgs), len(s.memberships)
}

func strPtr(s string) *string { return &s }
