// Package reconciler applies identity-provider webhook events to the local
// users, organizations and organization_memberships tables.
//
// Every flow is idempotent and last-write-wins: events carry no version and
// are applied in arrival order. Membership events may reference a user or
// organization that has not been delivered yet; a placeholder row holding
// only the external id is created so the membership can be stored, and the
// parent's own event fills in the real fields later.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/clerk"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/metrics"
	"github.com/meseeks-ai/meseeks/internal/notify"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/user"
)

// ErrParentUnavailable is returned when a membership's user or organization
// could neither be found nor created. The provider's retry is the recovery path.
var ErrParentUnavailable = errors.New("membership parent unavailable")

// UserStore is the subset of user.Repository the engine needs.
type UserStore interface {
	FindByClerkID(ctx context.Context, clerkUserID string) (*user.User, error)
	UpsertByClerkID(ctx context.Context, p user.Profile) (*user.User, error)
	EnsureByClerkID(ctx context.Context, clerkUserID string) error
	DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error)
}

// OrganizationStore is the subset of organization.Repository the engine needs.
// DeleteByClerkID removes the organization and its dependents in one transaction.
type OrganizationStore interface {
	FindByClerkID(ctx context.Context, clerkOrganizationID string) (*organization.Organization, error)
	UpsertByClerkID(ctx context.Context, p organization.Profile) (*organization.Organization, error)
	EnsureByClerkID(ctx context.Context, clerkOrganizationID string) error
	DeleteByClerkID(ctx context.Context, clerkOrganizationID string) (bool, error)
}

// MembershipStore is the subset of membership.Repository the engine needs.
type MembershipStore interface {
	Upsert(ctx context.Context, userID, organizationID uuid.UUID, role string, clerkMembershipID *string) (*membership.Membership, error)
	DeleteByPair(ctx context.Context, userID, organizationID uuid.UUID) (int64, error)
}

// Engine reconciles classified webhook events.
type Engine struct {
	users       UserStore
	orgs        OrganizationStore
	memberships MembershipStore
	notifier    notify.Notifier
	now         func() time.Time
}

// New creates an Engine. A nil notifier disables change notifications.
func New(users UserStore, orgs OrganizationStore, memberships MembershipStore, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Engine{
		users:       users,
		orgs:        orgs,
		memberships: memberships,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Reconcile applies ev. Failures are logged with the event type and returned
// wrapped; a notification is published only after success.
func (e *Engine) Reconcile(ctx context.Context, ev clerk.Event) error {
	if err := e.apply(ctx, ev); err != nil {
		slog.Error("reconciler: failed to apply event",
			"event", ev.EventType(),
			"externalId", ev.ExternalID(),
			"error", err,
		)
		return fmt.Errorf("reconciling %s %s: %w", ev.EventType(), ev.ExternalID(), err)
	}

	change := notify.Change{Type: ev.EventType(), ExternalID: ev.ExternalID(), OccurredAt: e.now().UTC()}
	if err := e.notifier.Publish(ctx, change); err != nil {
		slog.Warn("reconciler: failed to publish change", "event", ev.EventType(), "error", err)
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, ev clerk.Event) error {
	switch ev := ev.(type) {
	case *clerk.UserUpserted:
		return e.upsertUser(ctx, ev)
	case *clerk.UserDeleted:
		return e.deleteUser(ctx, ev)
	case *clerk.OrganizationUpserted:
		return e.upsertOrganization(ctx, ev)
	case *clerk.OrganizationDeleted:
		return e.deleteOrganization(ctx, ev)
	case *clerk.MembershipUpserted:
		return e.upsertMembership(ctx, ev)
	case *clerk.MembershipDeleted:
		return e.deleteMembership(ctx, ev)
	}
	return fmt.Errorf("unhandled event variant %T", ev)
}

func (e *Engine) upsertUser(ctx context.Context, ev *clerk.UserUpserted) error {
	d := ev.Data
	u, err := e.users.UpsertByClerkID(ctx, user.Profile{
		ClerkUserID: d.ID,
		Email:       d.PrimaryEmail(),
		PhoneNumber: d.PrimaryPhone(),
		FirstName:   nonEmpty(d.FirstName),
		LastName:    nonEmpty(d.LastName),
	})
	if err != nil {
		return err
	}

	slog.Info("reconciler: upserted user", "event", ev.Type, "clerkUserId", d.ID, "userId", u.ID)
	return nil
}

func (e *Engine) deleteUser(ctx context.Context, ev *clerk.UserDeleted) error {
	deleted, err := e.users.DeleteByClerkID(ctx, ev.Data.ID)
	if err != nil {
		return err
	}
	if !deleted {
		slog.Info("reconciler: user already absent", "clerkUserId", ev.Data.ID)
		return nil
	}

	slog.Info("reconciler: deleted user", "clerkUserId", ev.Data.ID)
	return nil
}

func (e *Engine) upsertOrganization(ctx context.Context, ev *clerk.OrganizationUpserted) error {
	d := ev.Data
	o, err := e.orgs.UpsertByClerkID(ctx, organization.Profile{
		ClerkOrganizationID: d.ID,
		Name:                valueOrEmpty(d.Name),
		Slug:                valueOrEmpty(d.Slug),
		ImageURL:            d.ImageURL,
		LogoURL:             d.LogoURL,
		CreatedBy:           d.CreatedBy,
	})
	if err != nil {
		return err
	}

	slog.Info("reconciler: upserted organization", "event", ev.Type, "clerkOrganizationId", d.ID, "organizationId", o.ID)
	return nil
}

func (e *Engine) deleteOrganization(ctx context.Context, ev *clerk.OrganizationDeleted) error {
	deleted, err := e.orgs.DeleteByClerkID(ctx, ev.Data.ID)
	if err != nil {
		return err
	}
	if !deleted {
		slog.Info("reconciler: organization already absent", "clerkOrganizationId", ev.Data.ID)
		return nil
	}

	slog.Info("reconciler: deleted organization", "clerkOrganizationId", ev.Data.ID)
	return nil
}

func (e *Engine) upsertMembership(ctx context.Context, ev *clerk.MembershipUpserted) error {
	d := ev.Data

	u, err := e.resolveUser(ctx, d.PublicUserData.UserID)
	if err != nil {
		return err
	}
	o, err := e.resolveOrganization(ctx, d.Organization.ID)
	if err != nil {
		return err
	}

	var clerkMembershipID *string
	if d.ID != "" {
		clerkMembershipID = &d.ID
	}

	m, err := e.memberships.Upsert(ctx, u.ID, o.ID, d.Role, clerkMembershipID)
	if err != nil {
		return err
	}

	slog.Info("reconciler: upserted membership",
		"event", ev.Type,
		"clerkMembershipId", d.ID,
		"userId", u.ID,
		"organizationId", o.ID,
		"role", m.Role,
	)
	return nil
}

func (e *Engine) deleteMembership(ctx context.Context, ev *clerk.MembershipDeleted) error {
	d := ev.Data

	u, err := e.users.FindByClerkID(ctx, d.PublicUserData.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		slog.Warn("reconciler: membership user not found, nothing to delete", "clerkUserId", d.PublicUserData.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	o, err := e.orgs.FindByClerkID(ctx, d.Organization.ID)
	if errors.Is(err, organization.ErrOrganizationNotFound) {
		slog.Warn("reconciler: membership organization not found, nothing to delete", "clerkOrganizationId", d.Organization.ID)
		return nil
	}
	if err != nil {
		return err
	}

	n, err := e.memberships.DeleteByPair(ctx, u.ID, o.ID)
	if err != nil {
		return err
	}

	slog.Info("reconciler: deleted membership",
		"clerkMembershipId", d.ID,
		"userId", u.ID,
		"organizationId", o.ID,
		"rows", n,
	)
	return nil
}

// resolveUser finds the user or creates a placeholder for it.
func (e *Engine) resolveUser(ctx context.Context, clerkUserID string) (*user.User, error) {
	u, err := e.users.FindByClerkID(ctx, clerkUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	if err := e.users.EnsureByClerkID(ctx, clerkUserID); err != nil {
		return nil, fmt.Errorf("%w: creating placeholder user %s: %v", ErrParentUnavailable, clerkUserID, err)
	}
	metrics.Placeholders.WithLabelValues("user").Inc()
	slog.Warn("reconciler: created placeholder user", "clerkUserId", clerkUserID)

	u, err = e.users.FindByClerkID(ctx, clerkUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: refetching user %s: %v", ErrParentUnavailable, clerkUserID, err)
	}
	return u, nil
}

// resolveOrganization finds the organization or creates a placeholder for it.
func (e *Engine) resolveOrganization(ctx context.Context, clerkOrganizationID string) (*organization.Organization, error) {
	o, err := e.orgs.FindByClerkID(ctx, clerkOrganizationID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, organization.ErrOrganizationNotFound) {
		return nil, err
	}

	if err := e.orgs.EnsureByClerkID(ctx, clerkOrganizationID); err != nil {
		return nil, fmt.Errorf("%w: creating placeholder organization %s: %v", ErrParentUnavailable, clerkOrganizationID, err)
	}
	metrics.Placeholders.WithLabelValues("organization").Inc()
	slog.Warn("reconciler: created placeholder organization", "clerkOrganizationId", clerkOrganizationID)

	o, err = e.orgs.FindByClerkID(ctx, clerkOrganizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: refetching organization %s: %v", ErrParentUnavailable, clerkOrganizationID, err)
	}
	return o, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
