package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	specpkg "github.com/meseeks-ai/meseeks/api"
	"github.com/meseeks-ai/meseeks/internal/api"
	"github.com/meseeks-ai/meseeks/internal/apikey"
	"github.com/meseeks-ai/meseeks/internal/auth"
	"github.com/meseeks-ai/meseeks/internal/clerk"
	"github.com/meseeks-ai/meseeks/internal/config"
	"github.com/meseeks-ai/meseeks/internal/conversation"
	"github.com/meseeks-ai/meseeks/internal/database"
	"github.com/meseeks-ai/meseeks/internal/delivery"
	"github.com/meseeks-ai/meseeks/internal/media"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/message"
	"github.com/meseeks-ai/meseeks/internal/notify"
	"github.com/meseeks-ai/meseeks/internal/openai"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/product"
	"github.com/meseeks-ai/meseeks/internal/reconciler"
	"github.com/meseeks-ai/meseeks/internal/user"
	"github.com/meseeks-ai/meseeks/internal/whatsapp"
)

const mediaSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	users := user.NewRepository(db.Pool())
	orgs := organization.NewRepository(db.Pool())
	memberships := membership.NewRepository(db.Pool())
	messages := message.NewRepository(db.Pool())
	products := product.NewPostgresRepository(db.Pool())

	webhookVerifier, err := clerk.NewVerifier(cfg.ClerkWebhookSecret)
	if err != nil {
		return fmt.Errorf("configuring webhook verifier: %w", err)
	}
	if cfg.ClerkWebhookSecret == "" {
		slog.Warn("CLERK_WEBHOOK_SECRET is not set; identity webhooks will be rejected")
	}

	sessions, err := clerk.NewSessionVerifier(cfg.ClerkJWTPublicKey, cfg.ClerkJWTIssuer)
	if err != nil {
		return fmt.Errorf("configuring session verifier: %w", err)
	}
	if !sessions.Enabled() {
		slog.Warn("CLERK_JWT_PUBLIC_KEY is not set; session authentication is disabled")
	}

	tracker, closeTracker := initDeliveryTracker(ctx, cfg)
	defer closeTracker()

	notifier, closeNotifier := initNotifier(cfg)
	defer closeNotifier()

	store := media.NewStore(cfg.MediaDir, cfg.ServerURL)
	go media.NewJanitor(store.Dir(), cfg.MediaMaxAge(), mediaSweepInterval).Start(ctx)

	ai := openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		Model:           cfg.OpenAIModel,
		TranscribeModel: cfg.OpenAITranscribeModel,
		SpeechModel:     cfg.OpenAISpeechModel,
		SpeechVoice:     cfg.OpenAISpeechVoice,
	}, nil)
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; the assistant will answer with errors")
	}

	wa := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
		GraphURL:      cfg.WhatsAppGraphURL,
	}, nil, store)

	conv := conversation.NewService(ai, ai, store, messages, users)
	dispatcher := whatsapp.NewDispatcher(cfg.WhatsAppVerifyToken, wa, conv, ai)

	keys := apikey.NewService(apikey.NewRepository(db.Pool()), cfg.BcryptCost)
	authSvc := auth.NewService(keys, sessions, users, memberships)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:    db,
		Version:     cfg.Version,
		OpenAPISpec: specpkg.OpenAPISpec,

		ClerkVerifier:    webhookVerifier,
		Reconciler:       reconciler.New(users, orgs, memberships, notifier),
		DeliveryTracker:  tracker,
		WhatsApp:         dispatcher,
		Media:            store,
		WebhookRateLimit: cfg.WebhookRateLimit,

		AuthService:      authSvc,
		OrganizationRepo: orgs,
		MembershipRepo:   memberships,
		UserRepo:         users,
		ProductRepo:      products,
		APIKeys:          keys,
		Assistant:        conv,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting meseeks server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// initDeliveryTracker falls back to no deduplication when Redis is not
// configured or unreachable.
func initDeliveryTracker(ctx context.Context, cfg *config.Config) (delivery.Tracker, func()) {
	if cfg.RedisURL == "" {
		return delivery.Noop{}, func() {}
	}

	client, err := delivery.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable; webhook deliveries will not be deduplicated", "error", err)
		return delivery.Noop{}, func() {}
	}
	return delivery.NewRedisTracker(client, cfg.DeliveryTTL()), func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
}

func initNotifier(cfg *config.Config) (notify.Notifier, func()) {
	if cfg.RabbitMQURL == "" {
		return notify.Noop{}, func() {}
	}

	n := notify.NewAMQPNotifier(cfg.RabbitMQURL, cfg.EventsQueue)
	return n, func() {
		if err := n.Close(); err != nil {
			slog.Warn("failed to close event publisher", "error", err)
		}
	}
}
