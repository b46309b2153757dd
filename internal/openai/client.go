// Package openai is a small client for the chat completion, transcription
// and speech endpoints.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/meseeks-ai/meseeks/internal/breaker"
)

// ErrEmptyResponse is returned when a completion carries no content.
var ErrEmptyResponse = errors.New("openai: no response content")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("openai: api key not configured")

// Config holds the client settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string
}

// Client calls the OpenAI HTTP API through a circuit breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *breaker.Breaker
}

// NewClient creates a Client. A nil httpClient uses a client with a 60s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, breaker: breaker.New("openai")}
}

// Chat sends the conversation and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	return breaker.Execute(c.breaker, func() (string, error) {
		var resp chatResponse
		if err := c.doJSON(ctx, "/chat/completions", "application/json", bytes.NewReader(body), &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Transcribe uploads the audio file at path and returns its text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copying audio file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}
	payload := buf.Bytes()

	return breaker.Execute(c.breaker, func() (string, error) {
		var resp transcriptionResponse
		if err := c.doJSON(ctx, "/audio/transcriptions", mw.FormDataContentType(), bytes.NewReader(payload), &resp); err != nil {
			return "", err
		}
		if resp.Text == "" {
			return "", ErrEmptyResponse
		}
		return resp.Text, nil
	})
}

// Speak synthesizes text to mp3 audio.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.SpeechModel,
		Input:          text,
		Voice:          c.cfg.SpeechVoice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding speech request: %w", err)
	}

	return breaker.Execute(c.breaker, func() ([]byte, error) {
		resp, err := c.do(ctx, "/audio/speech", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading speech audio: %w", err)
		}
		if len(audio) == 0 {
			return nil, ErrEmptyResponse
		}
		return audio, nil
	})
}

func (c *Client) doJSON(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	resp, err := c.do(ctx, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// do sends a POST and returns the response for 2xx statuses. The caller
// closes the body.
func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var er errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&er); err == nil && er.Error.Message != "" {
		apiErr.Message = er.Error.Message
	}
	return nil, apiErr
}
