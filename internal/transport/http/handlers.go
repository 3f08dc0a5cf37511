// @title WarrantyHub API
// @version 1.0.0
// @description Multi-tenant warranty registration and claims platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key

package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/chat"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	resolver        *tenant.Resolver
	tenantService   *tenant.Service
	catalogService  *catalog.Service
	warrantyService *warranty.Service
	claimService    *claim.Service
	chatEngine      *chat.Engine
	auditLogs       audit.Reader
	chatHistory     gateway.EventReader
	security        *logger.SecurityLogger
	webhook         WebhookConfig
	healthCheck     func(ctx context.Context) error
	trustProxy      bool
}

// WebhookConfig holds the inbound chat webhook settings. An empty Secret
// disables signature checks; an empty VerifyToken rejects the handshake.
type WebhookConfig struct {
	Secret      string
	VerifyToken string
}

// Services bundles the domain services the handlers call
type Services struct {
	Identity  *identity.Service
	Resolver  *tenant.Resolver
	Tenants   *tenant.Service
	Catalog   *catalog.Service
	Warranty  *warranty.Service
	Claims    *claim.Service
	Chat      *chat.Engine
	AuditLogs audit.Reader
	History   gateway.EventReader
	Security  *logger.SecurityLogger
	Webhook   WebhookConfig
	Readiness func(ctx context.Context) error

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxy bool
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	security := s.Security
	if security == nil {
		security = logger.NewSecurityLogger(nil)
	}
	return &Handler{
		identityService: s.Identity,
		resolver:        s.Resolver,
		tenantService:   s.Tenants,
		catalogService:  s.Catalog,
		warrantyService: s.Warranty,
		claimService:    s.Claims,
		chatEngine:      s.Chat,
		auditLogs:       s.AuditLogs,
		chatHistory:     s.History,
		security:        security,
		webhook:         s.Webhook,
		healthCheck:     s.Readiness,
		trustProxy:      s.TrustProxy,
	}
}

// NewRouter creates a new HTTP router. httpMetrics may be nil.
func NewRouter(h *Handler, rateLimiter *RateLimiter, httpMetrics *metrics.HTTPMetrics) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if h.trustProxy {
		r.Use(middleware.RealIP)
	}
	if rateLimiter != nil {
		r.Use(RateLimitMiddleware(rateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)
	if httpMetrics != nil {
		r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())
	}
	r.Get("/swagger/doc.json", h.SwaggerDoc)

	// Inbound chat channel
	r.Route("/webhooks/chat", func(r chi.Router) {
		r.Get("/", h.VerifyWebhook)
		r.Post("/", h.ChatWebhook)
	})

	// External integrations (API key)
	r.Route("/api/external", func(r chi.Router) {
		r.Use(h.APIKeyMiddleware)
		if rateLimiter != nil {
			r.Use(StoreRateLimitMiddleware(rateLimiter))
		}
		r.Post("/warranties", h.ExternalRegisterWarranty)
		r.Get("/warranties/{serial}", h.ExternalGetWarranty)
		r.Post("/claims", h.ExternalCreateClaim)
		r.Get("/claims/{serial}", h.ExternalListClaims)
		r.Get("/products/{serial}", h.ExternalGetProduct)
	})

	// Admin API (session token)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentAccount)
			r.Post("/stores", h.SetupStore)

			// Store-scoped (X-Store-ID)
			r.Group(func(r chi.Router) {
				r.Use(RequireStore)

				r.Get("/stores/current", h.GetCurrentStore)
				r.Put("/stores/current", h.UpdateCurrentStore)

				r.Get("/store-users", h.ListStoreUsers)
				r.Post("/store-users", h.GrantStoreUser)
				r.Delete("/store-users/{accountID}", h.RevokeStoreUser)

				r.Get("/api-keys", h.ListAPIKeys)
				r.Post("/api-keys", h.CreateAPIKey)
				r.Put("/api-keys/{keyID}/status", h.SetAPIKeyStatus)

				r.Post("/products", h.CreateProduct)
				r.Get("/products/{productID}", h.GetProduct)
				r.Get("/products/serial/{serial}", h.GetProductBySerial)

				r.Post("/customers", h.UpsertCustomer)

				r.Post("/warranties", h.RegisterWarranty)
				r.Get("/warranties/{warrantyID}", h.GetWarranty)

				r.Post("/claims", h.CreateClaim)
				r.Get("/claims/{claimID}", h.GetClaim)
				r.Put("/claims/{claimID}/status", h.UpdateClaimStatus)
				r.Post("/claims/{claimID}/timeline", h.AddClaimTimelineEvent)

				r.Get("/audit-logs", h.ListAuditLogs)
				r.Get("/chat-events", h.ListChatEvents)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and its database reachable
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "warrantyhub",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "warrantyhub",
	})
}

// Helper functions
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// getIPAddress returns the client host. Proxy headers only count when the
// router trusts them, in which case middleware.RealIP has already rewritten
// RemoteAddr.
func getIPAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
