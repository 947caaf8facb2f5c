// Package handler serves the REST API consumed by the dashboard.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"medwise-api/internal/events"
	"medwise-api/internal/middleware"
	"medwise-api/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth         *service.Authenticator
	Appointments *service.Appointments
	Dashboard    *service.Dashboard
	Support      *service.Support
	Hub          *events.Hub
	Store        Pinger
	Limiter      *middleware.RateLimiter
	// GRPCWeb, when set, is mounted under /medwise.v1.ScheduleService/.
	GRPCWeb http.Handler

	AllowedOrigins       []string
	TrustIdentityHeaders bool
	RequestTimeout       time.Duration
	Log                  *slog.Logger
}

type Handler struct {
	auth         *service.Authenticator
	appointments *service.Appointments
	dashboard    *service.Dashboard
	support      *service.Support
	hub          *events.Hub
	store        Pinger
	limiter      *middleware.RateLimiter
	grpcWeb      http.Handler

	origins      []string
	trustHeaders bool
	timeout      time.Duration
	logger       *slog.Logger
}

func New(d Deps) *Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		auth:         d.Auth,
		appointments: d.Appointments,
		dashboard:    d.Dashboard,
		support:      d.Support,
		hub:          d.Hub,
		store:        d.Store,
		limiter:      d.Limiter,
		grpcWeb:      d.GRPCWeb,
		origins:      d.AllowedOrigins,
		trustHeaders: d.TrustIdentityHeaders,
		timeout:      timeout,
		logger:       d.Log,
	}
}

// Routes builds the router. The websocket endpoint and the gRPC-Web bridge
// stay outside the request timeout.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(corsHandler(h.origins))

	r.Get("/healthz", h.Health)

	if h.grpcWeb != nil {
		r.Handle("/medwise.v1.ScheduleService/*", h.grpcWeb)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(h.auth, h.trustHeaders))

		if h.hub != nil {
			r.With(middleware.RequireIdentity).Get("/api/ws", h.Stream)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(h.timeout))

			r.Route("/api/auth", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					if h.limiter != nil {
						r.Use(middleware.RateLimitHTTP(h.limiter))
					}
					r.Post("/signin", h.SignIn)
					r.Post("/refresh", h.Refresh)
				})
				r.With(middleware.RequireIdentity).Post("/signout", h.SignOut)
				r.With(middleware.RequireIdentity).Get("/session", h.Session)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireIdentity)

				r.Get("/api/appointments", h.ListAppointments)
				r.Post("/api/appointments", h.CreateAppointment)
				r.Patch("/api/appointments", h.UpdateAppointment)
				r.Delete("/api/appointments", h.DeleteAppointment)

				r.Get("/api/doctor", h.ListDoctors)
				r.Get("/api/dashboard/summary", h.Summary)
				r.Post("/api/support", h.OpenTicket)
			})
		})
	})

	return r
}

func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

var kindStatus = map[service.Kind]int{
	service.KindInvalid:         http.StatusBadRequest,
	service.KindUnauthenticated: http.StatusUnauthorized,
	service.KindForbidden:       http.StatusForbidden,
	service.KindNotFound:        http.StatusNotFound,
	service.KindConflict:        http.StatusConflict,
}

// fail writes a service error. Anything unexpected is logged and hidden
// behind a generic 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if kind, msg, ok := service.KindOf(err); ok {
		if code, known := kindStatus[kind]; known {
			respondWithError(w, code, msg, h.logger)
			return
		}
	}
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()),
		"error", err,
	)
	respondWithError(w, http.StatusInternalServerError, service.MsgInternal, h.logger)
}

// decode reads a JSON body into v and answers 400 on malformed input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return false
	}
	return true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Error("health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, h.logger)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}
