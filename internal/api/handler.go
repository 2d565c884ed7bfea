// Package api exposes the decision core over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/core"
)

// maxBodyBytes caps request bodies; candidate pools are the largest payload.
const maxBodyBytes = 1 << 20

// Handler serves the decision core.
type Handler struct {
	core   *core.Core
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(c *core.Core, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{core: c, logger: logger.Named("api")}
}

// Router builds the chi router with every route registered.
func (h *Handler) Router(serveMetrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if serveMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the /v1 API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/interview/{sessionID}", func(r chi.Router) {
			r.Post("/start", h.StartInterview)
			r.Post("/answer", h.AdvanceInterview)
		})
		r.Post("/discovery", h.Discover)
		r.Post("/shortlist", h.Shortlist)
		r.Route("/chat/{sessionID}", func(r chi.Router) {
			r.Post("/classify", h.Classify)
			r.Post("/turn", h.Turn)
			r.Get("/trend", h.Trend)
			r.Delete("/", h.ForgetConversation)
		})
		r.Route("/advisor", func(r chi.Router) {
			r.Post("/improvement-tasks", h.ImprovementTasks)
			r.Post("/dashboard", h.Dashboard)
			r.Post("/suggestions", h.Suggestions)
		})
	})
}

// #region helpers

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// errorWithReason writes a JSON error carrying a failure reason tag.
func errorWithReason(w http.ResponseWriter, status int, message, reason string) {
	JSON(w, status, map[string]string{"error": message, "reason": reason})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request body: %w", err)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

// #endregion helpers
