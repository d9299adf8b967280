// Package httpapi exposes the portal's JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/applywizz/portal/internal/admin"
	"github.com/applywizz/portal/internal/checkout"
	"github.com/applywizz/portal/internal/config"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/httputil"
	"github.com/applywizz/portal/internal/metrics"
	"github.com/applywizz/portal/internal/middleware"
	"github.com/applywizz/portal/internal/onboarding"
	"github.com/applywizz/portal/pkg/logger"
)

// Sessions validates and revokes admin session tokens.
type Sessions interface {
	middleware.Authenticator
	Revoke(ctx context.Context, token string) error
}

// StorageChecker verifies the resume bucket.
type StorageChecker interface {
	Check(ctx context.Context) error
}

// Deps are the services behind the API.
type Deps struct {
	Checkout   *checkout.Service
	Admin      *admin.Service
	Onboarding *onboarding.Service
	Sessions   Sessions
	Storage    StorageChecker
	Catalog    *config.Catalog
	Metrics    *metrics.Metrics
	Logger     *logger.Logger

	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
	// StorageTarget names the resume bucket in storage check responses.
	StorageTarget string
	Version       string
	Health        *HealthReporter
}

// Server is the portal's root HTTP handler.
type Server struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

type handler struct {
	Deps
	log *logger.Logger
}

// NewServer builds the router and its middleware chain:
// tracing, CORS, then per-route metrics and rate limiting or admin auth.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.NewDefault("http")
	}
	if d.Catalog == nil {
		d.Catalog = config.DefaultCatalog()
	}
	if d.Health == nil {
		d.Health = NewHealthReporter(d.Version)
	}
	h := &handler{Deps: d, log: d.Logger}

	limiter := middleware.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst, d.Logger)
	authMW := middleware.NewAuthMiddleware(d.Sessions, d.Logger, nil)

	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware(d.Metrics))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, svcerrors.NotFound("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteErrorResponse(w, req, http.StatusMethodNotAllowed, string(svcerrors.CodeBadRequest), "method not allowed", nil)
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/catalog", h.catalog).Methods(http.MethodGet)

	limit := func(fn http.HandlerFunc) http.Handler { return limiter.Handler(fn) }
	api.Handle("/checkout/otp/send", limit(h.sendOTP)).Methods(http.MethodPost)
	api.Handle("/checkout/otp/verify", limit(h.verifyOTP)).Methods(http.MethodPost)
	api.Handle("/admin/login", limit(h.login)).Methods(http.MethodPost)

	api.HandleFunc("/checkout", h.createCheckout).Methods(http.MethodPost)
	api.HandleFunc("/onboarding/prefill", h.prefill).Methods(http.MethodGet)
	api.HandleFunc("/onboarding", h.submitOnboarding).Methods(http.MethodPost)

	adm := api.PathPrefix("/admin").Subrouter()
	adm.Use(authMW.Handler, middleware.RequireAdmin)
	adm.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	adm.HandleFunc("/me", h.me).Methods(http.MethodGet)
	adm.HandleFunc("/overview", h.overview).Methods(http.MethodGet)
	adm.HandleFunc("/settings/payment", h.paymentSettings).Methods(http.MethodGet)
	adm.HandleFunc("/settings/payment", h.updatePaymentSettings).Methods(http.MethodPut)
	adm.HandleFunc("/gateways", h.gateways).Methods(http.MethodGet)
	adm.HandleFunc("/settings/pricing", h.pricing).Methods(http.MethodGet)
	adm.HandleFunc("/settings/pricing", h.updatePricing).Methods(http.MethodPut)
	adm.HandleFunc("/transactions", h.transactions).Methods(http.MethodGet)
	adm.HandleFunc("/transactions/stats", h.transactionStats).Methods(http.MethodGet)
	adm.HandleFunc("/transactions/{jbId}", h.transaction).Methods(http.MethodGet)
	adm.HandleFunc("/users", h.listAdmins).Methods(http.MethodGet)
	adm.HandleFunc("/users", h.createAdmin).Methods(http.MethodPost)
	adm.HandleFunc("/users/{id}", h.deleteAdmin).Methods(http.MethodDelete)
	adm.HandleFunc("/users/{id}/password", h.updateAdminPassword).Methods(http.MethodPut)
	adm.HandleFunc("/users/{id}/active", h.setAdminActive).Methods(http.MethodPut)
	adm.HandleFunc("/storage/check", h.storageCheck).Methods(http.MethodGet)

	var root http.Handler = r
	root = middleware.NewCORSMiddleware(d.AllowedOrigins).Handler(root)
	root = middleware.NewTracingMiddleware(d.Logger).Handler(root)

	return &Server{handler: root, limiter: limiter}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// StartCleanup evicts idle rate limiter entries until ctx is done.
func (s *Server) StartCleanup(ctx context.Context, interval time.Duration) {
	s.limiter.StartCleanup(ctx, interval)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.WriteError(w, r, svcerrors.BadRequest(err.Error()))
		return false
	}
	return true
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	type planPrice struct {
		config.Plan
		Price string `json:"price"`
	}

	prices := h.Admin.Pricing(r.Context())
	plans := make([]planPrice, 0, len(h.Catalog.Plans))
	for _, p := range h.Catalog.Plans {
		plans = append(plans, planPrice{Plan: p, Price: prices[p.ID]})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plans":              plans,
		"country_codes":      h.Catalog.CountryCodes,
		"genders":            h.Catalog.Genders,
		"work_authorization": h.Catalog.WorkAuthorization,
		"work_preferences":   h.Catalog.WorkPreferences,
		"education":          h.Catalog.Education,
		"job_roles":          h.Catalog.JobRoles,
	})
}
