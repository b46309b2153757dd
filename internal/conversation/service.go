// Package conversation runs a persisted chat between a user and the language model.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/message"
	"github.com/meseeks-ai/meseeks/internal/openai"
	"github.com/meseeks-ai/meseeks/internal/user"
)

// AssistantPrompt is used for replies through the HTTP agent endpoint.
const AssistantPrompt = `You are a helpful AI assistant. Be knowledgeable, friendly and honest.
Keep responses concise but thorough, ask clarifying questions when a request is ambiguous,
and give practical, actionable advice.`

// WhatsAppPrompt is used for replies to WhatsApp senders.
const WhatsAppPrompt = `You are Mr. Meseeks, a friend chatting over WhatsApp.
Be warm and approachable, keep messages short and easy to read, and use emojis sparingly
where they fit. Offer further help and close conversations on a positive note.`

// Chatter produces a completion for a conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []openai.ChatMessage) (string, error)
}

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// MediaStore persists audio and returns public links to it.
type MediaStore interface {
	Save(name string, data []byte) (string, error)
	URL(name string) string
}

// PhoneUsers resolves WhatsApp senders to local users.
type PhoneUsers interface {
	UpsertByPhone(ctx context.Context, phone string) (*user.User, error)
}

// Service generates replies and keeps the message history.
type Service struct {
	chat     Chatter
	speech   Synthesizer
	media    MediaStore
	messages message.Repository
	users    PhoneUsers
	newName  func() string
}

// NewService creates a conversation Service.
func NewService(chat Chatter, speech Synthesizer, media MediaStore, messages message.Repository, users PhoneUsers) *Service {
	return &Service{
		chat:     chat,
		speech:   speech,
		media:    media,
		messages: messages,
		users:    users,
		newName:  func() string { return uuid.NewString() + ".mp3" },
	}
}

// Reply stores the user's input, sends the full history to the model and
// stores and returns the answer.
func (s *Service) Reply(ctx context.Context, userID uuid.UUID, input string) (string, error) {
	return s.reply(ctx, userID, input, AssistantPrompt)
}

// ReplyToPhone is Reply for a WhatsApp sender. The user is created on first contact.
func (s *Service) ReplyToPhone(ctx context.Context, phone, input string) (string, error) {
	u, err := s.users.UpsertByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("resolving user by phone: %w", err)
	}
	return s.reply(ctx, u.ID, input, WhatsAppPrompt)
}

// History returns the user's messages oldest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	return s.messages.ListByUser(ctx, userID)
}

func (s *Service) reply(ctx context.Context, userID uuid.UUID, input, prompt string) (string, error) {
	if err := s.messages.Create(ctx, &message.Message{UserID: userID, Role: message.RoleUser, Content: input}); err != nil {
		return "", fmt.Errorf("storing user message: %w", err)
	}

	history, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	prompts := make([]openai.ChatMessage, 0, len(history)+1)
	prompts = append(prompts, openai.ChatMessage{Role: "system", Content: prompt})
	for _, m := range history {
		prompts = append(prompts, openai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	answer, err := s.chat.Chat(ctx, prompts)
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}

	if err := s.messages.Create(ctx, &message.Message{UserID: userID, Role: message.RoleAssistant, Content: answer}); err != nil {
		return "", fmt.Errorf("storing assistant message: %w", err)
	}

	slog.Debug("conversation: replied", "userId", userID, "turns", len(history)+1)
	return answer, nil
}

// Speak synthesizes text into the media directory and returns its public link.
func (s *Service) Speak(ctx context.Context, text string) (string, error) {
	audio, err := s.speech.Speak(ctx, text)
	if err != nil {
		return "", fmt.Errorf("synthesizing speech: %w", err)
	}

	name := s.newName()
	if _, err := s.media.Save(name, audio); err != nil {
		return "", fmt.Errorf("saving speech: %w", err)
	}
	return s.media.URL(name), nil
}
