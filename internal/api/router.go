package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meseeks-ai/meseeks/internal/api/handler"
	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/delivery"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/organization"
	"github.com/meseeks-ai/meseeks/internal/product"
	"github.com/meseeks-ai/meseeks/internal/user"
)

// AuthService authenticates callers and decides resource access.
type AuthService interface {
	middleware.Authenticator
	middleware.AccessChecker
}

// RouterDeps holds all dependencies needed by the router. Route groups whose
// dependencies are nil are not registered.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Version     string
	OpenAPISpec []byte

	ClerkVerifier   handler.SignatureVerifier
	Reconciler      handler.EventReconciler
	DeliveryTracker delivery.Tracker
	WhatsApp        handler.MessageDispatcher
	Media           handler.MediaFiles

	// WebhookRateLimit is the per-IP request budget per minute on /webhooks.
	// Zero disables limiting.
	WebhookRateLimit int

	AuthService      AuthService
	OrganizationRepo organization.Repository
	MembershipRepo   membership.Repository
	UserRepo         user.Repository
	ProductRepo      product.Repository
	APIKeys          handler.APIKeyService
	Assistant        handler.Assistant
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	if deps.DBPinger != nil {
		healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
		r.Get("/health", healthHandler.ServeHTTP)
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec, deps.Version)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.Media != nil {
		mediaHandler := handler.NewMediaHandler(deps.Media)
		r.Get("/media/{name}", mediaHandler.ServeHTTP)
	}

	r.Route("/webhooks", func(r chi.Router) {
		if deps.WebhookRateLimit > 0 {
			r.Use(httprate.LimitByIP(deps.WebhookRateLimit, time.Minute))
		}

		if deps.ClerkVerifier != nil && deps.Reconciler != nil {
			clerkHandler := handler.NewClerkWebhookHandler(deps.ClerkVerifier, deps.Reconciler, deps.DeliveryTracker)
			r.Post("/clerk", clerkHandler.ServeHTTP)
		}

		if deps.WhatsApp != nil {
			whatsappHandler := handler.NewWhatsAppWebhookHandler(deps.WhatsApp)
			r.Get("/whatsapp", whatsappHandler.Verify)
			r.Post("/whatsapp", whatsappHandler.Receive)
		}
	})

	if deps.AuthService == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.AuthService))

		if deps.OrganizationRepo != nil && deps.MembershipRepo != nil && deps.UserRepo != nil {
			orgHandler := handler.NewOrganizationHandler(deps.OrganizationRepo, deps.MembershipRepo, deps.UserRepo)
			r.Route("/organizations", func(r chi.Router) {
				r.With(middleware.RequireSession()).Post("/", orgHandler.Create)
				r.Get("/", orgHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.RequireOrganizationAccess(deps.AuthService, "id"))

					r.Get("/", orgHandler.GetByID)
					r.Delete("/", orgHandler.Delete)
					r.Get("/members", orgHandler.ListMembers)
					r.Get("/members/{userId}", orgHandler.GetMember)
					r.Patch("/members/{userId}", orgHandler.UpdateMemberRole)
					r.Delete("/members/{userId}", orgHandler.RemoveMember)

					if deps.APIKeys != nil {
						keyHandler := handler.NewAPIKeyHandler(deps.APIKeys)
						r.Post("/api-keys", keyHandler.Create)
						r.Get("/api-keys", keyHandler.List)
						r.Delete("/api-keys/{keyId}", keyHandler.Delete)
						r.Post("/api-keys/{keyId}/revoke", keyHandler.Revoke)
					}

					if deps.ProductRepo != nil {
						productHandler := handler.NewProductHandler(deps.ProductRepo)
						r.Post("/products", productHandler.Create)
						r.Get("/products", productHandler.List)
						r.Get("/products/{productId}", productHandler.GetByID)
						r.Patch("/products/{productId}", productHandler.Update)
						r.Delete("/products/{productId}", productHandler.Delete)
					}
				})
			})

			userHandler := handler.NewUserHandler(deps.UserRepo, deps.MembershipRepo)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Use(middleware.RequireUserAccess(deps.AuthService, "id"))
				r.Get("/", userHandler.GetByID)
				r.Get("/memberships", userHandler.ListMemberships)
			})
		}

		if deps.Assistant != nil && deps.UserRepo != nil {
			agentHandler := handler.NewAgentHandler(deps.Assistant, deps.UserRepo)
			r.Route("/agent/chat", func(r chi.Router) {
				r.Use(middleware.RequireSession())
				r.Post("/message", agentHandler.SendMessage)
				r.Get("/messages", agentHandler.ListMessages)
			})
		}
	})

	return r
}
