package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/meseeks-ai/meseeks/internal/breaker"
	"github.com/meseeks-ai/meseeks/internal/media"
)

// defaultMaxMediaBytes bounds media downloads; the Cloud API caps audio at 16 MB.
const defaultMaxMediaBytes = 16 << 20

// ErrMediaTooLarge is returned when a download exceeds Config.MaxMediaBytes.
var ErrMediaTooLarge = errors.New("whatsapp: media exceeds size limit")

// Config holds the Cloud API settings.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	GraphURL      string
	// MaxMediaBytes caps downloads. Zero means 16 MB.
	MaxMediaBytes int64
}

// MediaSaver stores downloaded media.
type MediaSaver interface {
	Save(name string, data []byte) (string, error)
}

// APIError is returned for non-2xx Graph API responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: status %d: %s", e.StatusCode, e.Body)
}

// Client calls the WhatsApp Cloud API through a circuit breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	media   MediaSaver
	breaker *breaker.Breaker
}

// NewClient creates a Client. A nil httpClient uses a client with a 30s timeout.
func NewClient(cfg Config, httpClient *http.Client, saver MediaSaver) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = defaultMaxMediaBytes
	}
	return &Client{cfg: cfg, http: httpClient, media: saver, breaker: breaker.New("whatsapp")}
}

type outbound struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type,omitempty"`
	To               string        `json:"to,omitempty"`
	Type             string        `json:"type,omitempty"`
	Status           string        `json:"status,omitempty"`
	MessageID        string        `json:"message_id,omitempty"`
	Context          *replyContext `json:"context,omitempty"`
	Text             *textBody     `json:"text,omitempty"`
	Audio            *audioLink    `json:"audio,omitempty"`
}

type replyContext struct {
	MessageID string `json:"message_id"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type audioLink struct {
	Link string `json:"link"`
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	ID       string `json:"id"`
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.send(ctx, outbound{MessagingProduct: "whatsapp", Status: "read", MessageID: messageID})
}

// SendText sends a text message. A non-empty replyTo quotes that message.
func (c *Client) SendText(ctx context.Context, to, body, replyTo string) error {
	msg := outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             TypeText,
		Text:             &textBody{Body: body},
	}
	if replyTo != "" {
		msg.Context = &replyContext{MessageID: replyTo}
	}
	return c.send(ctx, msg)
}

// SendAudio sends an audio message that the Cloud API fetches from link.
func (c *Client) SendAudio(ctx context.Context, to, link string) error {
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             TypeAudio,
		Audio:            &audioLink{Link: link},
	})
}

// DownloadMedia resolves the media id, downloads the bytes and stores them
// as "<mediaID>.<ext>". It returns the stored file path.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) (string, error) {
	return breaker.Execute(c.breaker, func() (string, error) {
		var info mediaInfo
		resp, err := c.do(ctx, http.MethodGet, c.endpoint(mediaID), nil)
		if err != nil {
			return "", fmt.Errorf("resolving media %s: %w", mediaID, err)
		}
		err = json.NewDecoder(resp.Body).Decode(&info)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decoding media %s: %w", mediaID, err)
		}
		if info.URL == "" {
			return "", fmt.Errorf("media %s has no download url", mediaID)
		}

		resp, err = c.do(ctx, http.MethodGet, info.URL, nil)
		if err != nil {
			return "", fmt.Errorf("downloading media %s: %w", mediaID, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxMediaBytes+1))
		if err != nil {
			return "", fmt.Errorf("reading media %s: %w", mediaID, err)
		}
		if int64(len(data)) > c.cfg.MaxMediaBytes {
			return "", fmt.Errorf("%w: media %s is over %d bytes", ErrMediaTooLarge, mediaID, c.cfg.MaxMediaBytes)
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = info.MimeType
		}
		return c.media.Save(mediaID+"."+media.ExtensionFor(contentType), data)
	})
}

func (c *Client) endpoint(path string) string {
	return c.cfg.GraphURL + "/" + c.cfg.APIVersion + "/" + path
}

func (c *Client) send(ctx context.Context, msg outbound) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	return c.breaker.Do(func() error {
		resp, err := c.do(ctx, http.MethodPost, c.endpoint(c.cfg.PhoneNumberID+"/messages"), body)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Body.Close()
	})
}

// do performs an authenticated request and returns 2xx responses. The
// caller closes the body.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling graph api: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
	return nil, &APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
}
