package clerk

import "github.com/goccy/go-json"

// Event types delivered by the identity provider.
const (
	TypeUserCreated                   = "user.created"
	TypeUserUpdated                   = "user.updated"
	TypeUserDeleted                   = "user.deleted"
	TypeOrganizationCreated           = "organization.created"
	TypeOrganizationUpdated           = "organization.updated"
	TypeOrganizationDeleted           = "organization.deleted"
	TypeOrganizationMembershipCreated = "organizationMembership.created"
	TypeOrganizationMembershipUpdated = "organizationMembership.updated"
	TypeOrganizationMembershipDeleted = "organizationMembership.deleted"
)

// Envelope is the outer shape of every webhook delivery.
type Envelope struct {
	Type            string          `json:"type"`
	Object          string          `json:"object"`
	Timestamp       int64           `json:"timestamp"`
	Data            json.RawMessage `json:"data"`
	EventAttributes json.RawMessage `json:"event_attributes,omitempty"`
}

// Event is one of the variants below. The set is closed: only types in this
// package implement it.
type Event interface {
	EventType() string
	// ExternalID is the identity-provider id of the primary entity.
	ExternalID() string
	event()
}

// EmailAddress is an entry of a user's email_addresses array.
type EmailAddress struct {
	ID           string `json:"id" validate:"required"`
	EmailAddress string `json:"email_address"`
}

// PhoneNumber is an entry of a user's phone_numbers array.
type PhoneNumber struct {
	ID          string `json:"id" validate:"required"`
	PhoneNumber string `json:"phone_number"`
}

// UserData is the payload of user.created and user.updated.
type UserData struct {
	ID                    string         `json:"id" validate:"required"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	PrimaryPhoneNumberID  *string        `json:"primary_phone_number_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses" validate:"required,dive"`
	PhoneNumbers          []PhoneNumber  `json:"phone_numbers" validate:"required,dive"`
}

// PrimaryEmail returns the address whose id matches primary_email_address_id,
// or the first address when no primary id is set. Empty addresses yield nil.
func (d *UserData) PrimaryEmail() *string {
	var found string
	if d.PrimaryEmailAddressID != nil {
		for _, e := range d.EmailAddresses {
			if e.ID == *d.PrimaryEmailAddressID {
				found = e.EmailAddress
				break
			}
		}
	} else if len(d.EmailAddresses) > 0 {
		found = d.EmailAddresses[0].EmailAddress
	}
	return nonEmpty(found)
}

// PrimaryPhone resolves the primary phone number the same way as PrimaryEmail.
func (d *UserData) PrimaryPhone() *string {
	var found string
	if d.PrimaryPhoneNumberID != nil {
		for _, p := range d.PhoneNumbers {
			if p.ID == *d.PrimaryPhoneNumberID {
				found = p.PhoneNumber
				break
			}
		}
	} else if len(d.PhoneNumbers) > 0 {
		found = d.PhoneNumbers[0].PhoneNumber
	}
	return nonEmpty(found)
}

// OrganizationData is the payload of organization.created and organization.updated.
type OrganizationData struct {
	ID        string  `json:"id" validate:"required"`
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	ImageURL  *string `json:"image_url"`
	LogoURL   *string `json:"logo_url"`
	CreatedBy *string `json:"created_by"`
}

// DeletedData is the payload of user.deleted and organization.deleted.
type DeletedData struct {
	ID      string `json:"id" validate:"required"`
	Deleted bool   `json:"deleted"`
}

// MembershipOrganization is the organization embedded in a membership payload.
type MembershipOrganization struct {
	ID   string  `json:"id" validate:"required"`
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// PublicUserData is the user summary embedded in a membership payload.
type PublicUserData struct {
	UserID     string  `json:"user_id" validate:"required"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Identifier *string `json:"identifier"`
}

// MembershipData is the payload of every organizationMembership.* event.
type MembershipData struct {
	ID             string                  `json:"id"`
	Role           string                  `json:"role" validate:"required"`
	Organization   *MembershipOrganization `json:"organization" validate:"required"`
	PublicUserData *PublicUserData         `json:"public_user_data" validate:"required"`
}

// UserUpserted is a user.created or user.updated event.
type UserUpserted struct {
	Type string
	Data UserData
}

// UserDeleted is a user.deleted event.
type UserDeleted struct {
	Data DeletedData
}

// OrganizationUpserted is an organization.created or organization.updated event.
type OrganizationUpserted struct {
	Type string
	Data OrganizationData
}

// OrganizationDeleted is an organization.deleted event.
type OrganizationDeleted struct {
	Data DeletedData
}

// MembershipUpserted is an organizationMembership.created or .updated event.
type MembershipUpserted struct {
	Type string
	Data MembershipData
}

// MembershipDeleted is an organizationMembership.deleted event.
type MembershipDeleted struct {
	Data MembershipData
}

func (e *UserUpserted) EventType() string         { return e.Type }
func (e *UserDeleted) EventType() string          { return TypeUserDeleted }
func (e *OrganizationUpserted) EventType() string { return e.Type }
func (e *OrganizationDeleted) EventType() string  { return TypeOrganizationDeleted }
func (e *MembershipUpserted) EventType() string   { return e.Type }
func (e *MembershipDeleted) EventType() string    { return TypeOrganizationMembershipDeleted }

func (e *UserUpserted) ExternalID() string         { return e.Data.ID }
func (e *UserDeleted) ExternalID() string          { return e.Data.ID }
func (e *OrganizationUpserted) ExternalID() string { return e.Data.ID }
func (e *OrganizationDeleted) ExternalID() string  { return e.Data.ID }
func (e *MembershipUpserted) ExternalID() string   { return e.Data.ID }
func (e *MembershipDeleted) ExternalID() string    { return e.Data.ID }

func (*UserUpserted) event()         {}
func (*UserDeleted) event()          {}
func (*OrganizationUpserted) event() {}
func (*OrganizationDeleted) event()  {}
func (*MembershipUpserted) event()   {}
func (*MembershipDeleted) event()    {}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
