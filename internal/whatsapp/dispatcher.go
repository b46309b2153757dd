package whatsapp

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/meseeks-ai/meseeks/internal/metrics"
)

// VerificationFailed is the body returned for a rejected subscription challenge.
const VerificationFailed = "Error verifying token"

// Failure stages reported in logs and metrics.
const (
	StageMarkRead   = "mark_read"
	StageSender     = "sender"
	StageInvalid    = "invalid_message"
	StageReply      = "reply"
	StageSendText   = "send_text"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageSpeak      = "speak"
	StageSendAudio  = "send_audio"
)

// Messenger is the outbound side of the Cloud API.
type Messenger interface {
	MarkRead(ctx context.Context, messageID string) error
	SendText(ctx context.Context, to, body, replyTo string) error
	SendAudio(ctx context.Context, to, link string) error
	DownloadMedia(ctx context.Context, mediaID string) (string, error)
}

// Conversation produces replies and synthesized speech.
type Conversation interface {
	ReplyToPhone(ctx context.Context, phone, input string) (string, error)
	Speak(ctx context.Context, text string) (string, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Dispatcher routes inbound WhatsApp messages to the text or audio flow.
type Dispatcher struct {
	verifyToken  string
	messenger    Messenger
	conversation Conversation
	transcriber  Transcriber
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(verifyToken string, messenger Messenger, conversation Conversation, transcriber Transcriber) *Dispatcher {
	return &Dispatcher{
		verifyToken:  verifyToken,
		messenger:    messenger,
		conversation: conversation,
		transcriber:  transcriber,
	}
}

// VerifyChallenge answers the subscription handshake: the challenge is
// echoed when mode is "subscribe" and the token matches, otherwise
// VerificationFailed is returned.
func (d *Dispatcher) VerifyChallenge(mode, token, challenge string) string {
	if mode == "" || token == "" || d.verifyToken == "" {
		slog.Warn("whatsapp: missing verification parameters")
		return VerificationFailed
	}
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(d.verifyToken)) != 1 {
		slog.Warn("whatsapp: webhook verification failed", "mode", mode)
		return VerificationFailed
	}

	slog.Info("whatsapp: webhook verified")
	return challenge
}

// Dispatch processes the first message of a notification. Every stage
// failure is logged and counted, and ends processing of the message.
func (d *Dispatcher) Dispatch(ctx context.Context, w *Webhook) {
	msg, ok := w.FirstMessage()
	if !ok {
		slog.Debug("whatsapp: notification without messages")
		return
	}
	if err := msg.Validate(); err != nil {
		d.fail(StageInvalid, msg, err)
		return
	}

	if err := d.messenger.MarkRead(ctx, msg.ID); err != nil {
		d.fail(StageMarkRead, msg, err)
		return
	}

	phone, err := NormalizePhone(msg.From)
	if err != nil {
		d.fail(StageSender, msg, err)
		return
	}

	switch msg.Type {
	case TypeText:
		d.handleText(ctx, msg, phone)
	case TypeAudio:
		d.handleAudio(ctx, msg, phone)
	default:
		slog.Warn("whatsapp: unhandled message type", "type", msg.Type, "messageId", msg.ID)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, msg *Message, phone string) {
	reply, err := d.conversation.ReplyToPhone(ctx, phone, msg.Text.Body)
	if err != nil {
		d.fail(StageReply, msg, err)
		return
	}
	if err := d.messenger.SendText(ctx, msg.From, reply, msg.ID); err != nil {
		d.fail(StageSendText, msg, err)
		return
	}
	slog.Info("whatsapp: text reply sent", "messageId", msg.ID)
}

func (d *Dispatcher) handleAudio(ctx context.Context, msg *Message, phone string) {
	path, err := d.messenger.DownloadMedia(ctx, msg.Audio.ID)
	if err != nil {
		d.fail(StageDownload, msg, err)
		return
	}

	text, err := d.transcriber.Transcribe(ctx, path)
	if err != nil {
		d.fail(StageTranscribe, msg, err)
		return
	}

	reply, err := d.conversation.ReplyToPhone(ctx, phone, text)
	if err != nil {
		d.fail(StageReply, msg, err)
		return
	}

	link, err := d.conversation.Speak(ctx, reply)
	if err != nil {
		d.fail(StageSpeak, msg, err)
		return
	}

	if err := d.messenger.SendAudio(ctx, msg.From, link); err != nil {
		d.fail(StageSendAudio, msg, err)
		return
	}
	slog.Info("whatsapp: audio reply sent", "messageId", msg.ID)
}

func (d *Dispatcher) fail(stage string, msg *Message, err error) {
	metrics.WhatsAppStageFailures.WithLabelValues(stage).Inc()
	slog.Error("whatsapp: message processing failed",
		"stage", stage,
		"messageId", msg.ID,
		"type", msg.Type,
		"error", err,
	)
}
