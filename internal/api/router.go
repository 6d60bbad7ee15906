package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"socdash/internal/config"
	"socdash/internal/middleware"
	"socdash/internal/models"
	"socdash/internal/rate"
	"socdash/internal/service"
	"socdash/internal/util"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
}

func NewRouter(cfg config.Config, svc *service.Service) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, limiter: rate.NewLimiter()}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Store().Ping(r.Context()); err != nil {
			util.WriteJSON(w, 503, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
		util.WriteJSON(w, 200, map[string]string{"status": "ready"})
	})

	r.With(middleware.RateLimit(h.limiter, "login", 20, time.Minute, cfg.TrustProxy)).Post("/login", h.Login)

	r.Route("/api", func(r chi.Router) {
		r.Get("/user", h.ListUsers)
		r.Get("/invitation", h.ListInvitations)
		r.With(middleware.RateLimit(h.limiter, "invite", 10, time.Minute, cfg.TrustProxy)).Post("/invitation", h.Invite)
		r.With(middleware.RateLimit(h.limiter, "activate", 20, time.Minute, cfg.TrustProxy)).Post("/activate", h.Activate)
		r.Get("/sla-logs", h.SLALogs)
		r.Post("/sla-logs", h.RecordSample)
		r.Get("/sla", h.SLAReport)
	})

	return r
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "invalid json", middleware.RequestID(r.Context()))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			util.WriteError(w, 401, err.Error(), middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, res)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, users)
}

func (h *Handlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.ListInvitations(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, invs)
}

func (h *Handlers) Invite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.Invite(r.Context(), req.Email, req.Role); err != nil {
		writeServiceError(w, r, err, inviteStatus(err))
		return
	}
	util.WriteJSON(w, 200, map[string]bool{"success": true})
}

func (h *Handlers) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.Activate(r.Context(), req.Token, req.Username, req.Password); err != nil {
		writeServiceError(w, r, err, activateStatus(err))
		return
	}
	util.WriteJSON(w, 200, map[string]bool{"success": true})
}

func (h *Handlers) SLALogs(w http.ResponseWriter, r *http.Request) {
	windows, err := h.svc.SLAWindows(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, windows)
}

func (h *Handlers) RecordSample(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timestamp *time.Time `json:"timestamp"`
		Status    string     `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "invalid json", middleware.RequestID(r.Context()))
		return
	}
	at := time.Time{}
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	if err := h.svc.RecordSample(r.Context(), at, models.Status(req.Status)); err != nil {
		if isValidationError(err) {
			util.WriteError(w, 400, err.Error(), middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]bool{"success": true})
}

func (h *Handlers) SLAReport(w http.ResponseWriter, r *http.Request) {
	rangeName := r.URL.Query().Get("range")
	if rangeName == "" {
		rangeName = "7days"
	}
	report, err := h.svc.SLAReport(r.Context(), rangeName)
	if err != nil {
		if isValidationError(err) {
			util.WriteError(w, 400, err.Error(), middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 500, "internal server error", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]any{
		"range":         rangeName,
		"uptimePercent": report.UptimePercent,
		"days":          report.Days,
	})
}

func inviteStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		return 400
	case isValidationError(err):
		return 400
	default:
		return 500
	}
}

func activateStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUsernameTaken):
		return 400
	case isValidationError(err):
		return 400
	default:
		return 500
	}
}

func isValidationError(err error) bool {
	var ve *service.ValidationError
	return errors.As(err, &ve)
}

// writeServiceError keeps internal failures opaque: anything mapped to 500
// goes out as a generic message, everything else carries the service wording.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	util.WriteError(w, status, msg, middleware.RequestID(r.Context()))
}
