package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/hotel-booking/internal/metrics"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(ctx context.Context) error

// RouterConfig wires the handlers and middleware dependencies. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Accounts     *AccountHandler
	Rooms        *RoomHandler
	Catalog      *CatalogHandler
	Reservations *ReservationHandler
	Inquiries    *InquiryHandler
	Payments     *PaymentHandler

	Sessions    SessionValidator
	RateLimiter RateLimiter
	// RateLimit is the bucket capacity reported in X-RateLimit-Limit.
	RateLimit   int
	CORSOrigins []string
	Health      HealthChecker
	Logger      *slog.Logger
	Middleware  []func(http.Handler) http.Handler
}

type routes struct {
	mux       *http.ServeMux
	protected func(http.Handler) http.Handler
}

// handle registers pattern ("METHOD /path") with per route metrics.
func (rt routes) handle(pattern string, h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) {
	var handler http.Handler = h
	for i := len(wrap) - 1; i >= 0; i-- {
		handler = wrap[i](handler)
	}
	rt.mux.Handle(pattern, instrument(pattern, handler))
}

func (rt routes) private(pattern string, h http.HandlerFunc) {
	rt.handle(pattern, h, rt.protected)
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	rt := routes{
		mux:       http.NewServeMux(),
		protected: RequireSession(cfg.Sessions, logger),
	}

	rt.mux.Handle("GET /metrics", metrics.Handler())
	rt.handle("GET /healthz", healthz(cfg.Health, logger))

	if cfg.Auth != nil {
		rt.handle("POST /login", cfg.Auth.Login, RateLimit(cfg.RateLimiter, "login", cfg.RateLimit, logger))
		rt.handle("POST /register", cfg.Auth.Register, RateLimit(cfg.RateLimiter, "register", cfg.RateLimit, logger))
		rt.handle("POST /logout", cfg.Auth.Logout)
		rt.private("GET /me", cfg.Auth.Me)
	}

	if cfg.Accounts != nil {
		rt.private("POST /create-staff-account", cfg.Accounts.CreateStaffAccount)
		rt.private("POST /update-staff-account", cfg.Accounts.UpdateStaffAccount)
		rt.private("POST /delete-account", cfg.Accounts.DeleteAccount)
		rt.private("POST /update-password", cfg.Accounts.UpdatePassword)
		rt.private("GET /users", cfg.Accounts.ListUsers)
	}

	if cfg.Rooms != nil {
		rt.handle("GET /rooms", cfg.Rooms.List)
		rt.handle("GET /rooms/{id}", cfg.Rooms.Get)
		rt.private("POST /rooms", cfg.Rooms.Create)
		rt.private("PUT /rooms/{id}", cfg.Rooms.Update)
		rt.private("DELETE /rooms/{id}", cfg.Rooms.Delete)
		rt.private("PATCH /rooms/{id}/status", cfg.Rooms.SetStatus)
	}

	if cfg.Catalog != nil {
		rt.handle("GET /amenities", cfg.Catalog.ListAmenities)
		rt.private("POST /amenities", cfg.Catalog.CreateAmenity)
		rt.handle("GET /services", cfg.Catalog.ListServices)
		rt.handle("GET /services/{id}", cfg.Catalog.GetService)
		rt.private("POST /services", cfg.Catalog.CreateService)
		rt.private("PUT /services/{id}", cfg.Catalog.UpdateService)
		rt.private("DELETE /services/{id}", cfg.Catalog.DeleteService)
	}

	if cfg.Reservations != nil {
		rt.handle("POST /check-room-availability", cfg.Reservations.CheckAvailability)
		rt.private("GET /reservations", cfg.Reservations.List)
		rt.private("POST /reservations", cfg.Reservations.Create)
		rt.private("GET /reservations/{id}", cfg.Reservations.Get)
		rt.private("PUT /reservations/{id}", cfg.Reservations.Edit)
		rt.private("POST /reservations/{id}/cancel", cfg.Reservations.Cancel)
		rt.private("POST /reservations/{id}/complete", cfg.Reservations.Complete)
		rt.private("POST /reservations/{id}/change-requests", cfg.Reservations.SubmitChangeRequest)
	}

	if cfg.Inquiries != nil {
		rt.private("GET /inquiries", cfg.Inquiries.List)
		rt.private("POST /inquiries", cfg.Inquiries.Create)
		rt.private("GET /inquiries/{id}", cfg.Inquiries.Get)
		rt.private("POST /inquiries/{id}/reply", cfg.Inquiries.Reply)
		rt.private("POST /inquiries/{id}/close", cfg.Inquiries.Close)
		rt.private("POST /inquiries/{id}/approve", cfg.Inquiries.Approve)
		rt.private("POST /inquiries/{id}/reject", cfg.Inquiries.Reject)
	}

	if cfg.Payments != nil {
		rt.private("GET /payments", cfg.Payments.List)
		rt.private("PATCH /payments/{id}/status", cfg.Payments.UpdateStatus)
		rt.private("GET /stats/revenue", cfg.Payments.RevenueStats)
	}

	var handler http.Handler = rt.mux
	handler = CORS(cfg.CORSOrigins)(handler)
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return RequestLogger(logger)(handler)
}

func healthz(check HealthChecker, logger *slog.Logger) http.HandlerFunc {
	responder := newResponder(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, codeInternal, "storage unavailable", nil)
				return
			}
		}
		responder.writeData(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
