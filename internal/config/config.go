package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	Version        string `envconfig:"VERSION" default:"dev"`
	BcryptCost     int    `envconfig:"BCRYPT_COST" default:"12"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Left empty the server still boots; webhook requests then fail as a
	// server misconfiguration.
	ClerkWebhookSecret string `envconfig:"CLERK_WEBHOOK_SECRET" default:""`
	ClerkJWTPublicKey  string `envconfig:"CLERK_JWT_PUBLIC_KEY" default:""`
	ClerkJWTIssuer     string `envconfig:"CLERK_JWT_ISSUER" default:""`

	WhatsAppVerifyToken   string `envconfig:"WHATSAPP_VERIFY_TOKEN" default:""`
	WhatsAppAccessToken   string `envconfig:"WHATSAPP_ACCESS_TOKEN" default:""`
	WhatsAppPhoneNumberID string `envconfig:"WHATSAPP_PHONE_NUMBER_ID" default:""`
	WhatsAppAPIVersion    string `envconfig:"WHATSAPP_API_VERSION" default:"v21.0"`
	WhatsAppGraphURL      string `envconfig:"WHATSAPP_GRAPH_URL" default:"https://graph.facebook.com"`

	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel           string `envconfig:"OPENAI_MODEL" default:"gpt-4o-2024-05-13"`
	OpenAIBaseURL         string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAITranscribeModel string `envconfig:"OPENAI_TRANSCRIBE_MODEL" default:"whisper-1"`
	OpenAISpeechModel     string `envconfig:"OPENAI_SPEECH_MODEL" default:"tts-1"`
	OpenAISpeechVoice     string `envconfig:"OPENAI_SPEECH_VOICE" default:"alloy"`

	ServerURL        string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	MediaDir         string `envconfig:"MEDIA_DIR" default:"audio-files"`
	MediaMaxAgeHours int    `envconfig:"MEDIA_MAX_AGE_HOURS" default:"24"`

	RedisURL           string `envconfig:"REDIS_URL" default:""`
	DeliveryTTLSeconds int    `envconfig:"DELIVERY_TTL_SECONDS" default:"86400"`

	RabbitMQURL string `envconfig:"RABBITMQ_URL" default:""`
	EventsQueue string `envconfig:"EVENTS_QUEUE" default:"identity.events"`

	WebhookRateLimit int `envconfig:"WEBHOOK_RATE_LIMIT" default:"120"`
}

// DeliveryTTL is how long a processed webhook delivery id is remembered.
func (c *Config) DeliveryTTL() time.Duration {
	return time.Duration(c.DeliveryTTLSeconds) * time.Second
}

// MediaMaxAge is how long downloaded and synthesized audio files are kept.
func (c *Config) MediaMaxAge() time.Duration {
	return time.Duration(c.MediaMaxAgeHours) * time.Hour
}

// Load reads an optional .env file and then environment variables into a Config struct.
// Variables already present in the environment take precedence over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
