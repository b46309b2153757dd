package clerk

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	// ErrInvalidPayload is returned when the body is not a JSON event envelope.
	ErrInvalidPayload = errors.New("webhook body is not a valid event envelope")

	// ErrUnknownEvent is returned for event types outside the handled set.
	ErrUnknownEvent = errors.New("unknown webhook event type")

	// ErrMalformedEvent is returned when a known event type carries an invalid payload.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Classify decodes a delivery body into a typed Event.
//
// ErrInvalidPayload means the body could not be read as an envelope at all.
// ErrUnknownEvent and ErrMalformedEvent mean the delivery should be
// acknowledged and dropped.
func Classify(body []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidPayload)
	}
	return ClassifyEnvelope(&env)
}

// ClassifyEnvelope maps an already decoded envelope to its Event variant.
func ClassifyEnvelope(env *Envelope) (Event, error) {
	prefix, _, _ := strings.Cut(env.Type, ".")

	switch prefix {
	case "user":
		return classifyUser(env)
	case "organization":
		return classifyOrganization(env)
	case "organizationMembership":
		return classifyMembership(env)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
}

func classifyUser(env *Envelope) (Event, error) {
	switch env.Type {
	case TypeUserCreated, TypeUserUpdated:
		e := &UserUpserted{Type: env.Type}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	case TypeUserDeleted:
		e := &UserDeleted{}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
}

func classifyOrganization(env *Envelope) (Event, error) {
	switch env.Type {
	case TypeOrganizationCreated, TypeOrganizationUpdated:
		e := &OrganizationUpserted{Type: env.Type}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	case TypeOrganizationDeleted:
		e := &OrganizationDeleted{}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
}

func classifyMembership(env *Envelope) (Event, error) {
	switch env.Type {
	case TypeOrganizationMembershipCreated, TypeOrganizationMembershipUpdated:
		e := &MembershipUpserted{Type: env.Type}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	case TypeOrganizationMembershipDeleted:
		e := &MembershipDeleted{}
		if err := decodeData(env, &e.Data); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
}

func decodeData(env *Envelope, dst any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s: missing data", ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Type, err)
	}
	if err := payloadValidator().Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Type, err)
	}
	return nil
}
