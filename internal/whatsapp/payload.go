package whatsapp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Message types the dispatcher handles.
const (
	TypeText  = "text"
	TypeAudio = "audio"
)

// TypeLabel maps a message type to the bounded set used as a metric label:
// text, audio, other, or none when there is no message.
func TypeLabel(msgType string) string {
	switch msgType {
	case TypeText, TypeAudio:
		return msgType
	case "":
		return "none"
	}
	return "other"
}

// ErrInvalidPayload is returned when the body is not a webhook notification.
var ErrInvalidPayload = errors.New("whatsapp: invalid webhook payload")

// Webhook is the notification body posted by the Cloud API.
type Webhook struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []Message         `json:"messages,omitempty"`
	Statuses         []json.RawMessage `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound message.
type Message struct {
	From      string `json:"from" validate:"required"`
	ID        string `json:"id" validate:"required"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type" validate:"required"`
	Text      *Text  `json:"text,omitempty" validate:"required_if=Type text"`
	Audio     *Audio `json:"audio,omitempty" validate:"required_if=Type audio"`
}

type Text struct {
	Body string `json:"body"`
}

type Audio struct {
	ID       string `json:"id" validate:"required"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func messageValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ParseWebhook decodes a notification body.
func ParseWebhook(body []byte) (*Webhook, error) {
	var w Webhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &w, nil
}

// FirstMessage returns the first message of the first change of the first
// entry. Any further messages in the same delivery are not returned.
func (w *Webhook) FirstMessage() (*Message, bool) {
	if len(w.Entry) == 0 || len(w.Entry[0].Changes) == 0 {
		return nil, false
	}
	msgs := w.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return nil, false
	}
	return &msgs[0], true
}

// Validate checks the fields the dispatcher relies on.
func (m *Message) Validate() error {
	return messageValidator().Struct(m)
}
