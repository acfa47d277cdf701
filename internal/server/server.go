// Package server is the HTTP transport of the extraction service.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/benefits-extractor/internal/benefits"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/metrics"
)

const defaultMaxUploadBytes = 32 << 20

// Server exposes the benefits service over HTTP.
type Server struct {
	svc            *benefits.Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

// New creates the HTTP transport. m may be nil.
func New(svc *benefits.Service, logger *slog.Logger, m *metrics.Metrics, maxUploadBytes int64) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{svc: svc, logger: logger, metrics: m, maxUploadBytes: maxUploadBytes}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/{profileID}", s.handleGetProfile)

		r.Post("/extractions", s.handleCreateExtraction)
		r.Get("/extractions", s.handleListExtractions)
		r.Get("/extractions/{documentID}", s.handleGetExtraction)
		r.Delete("/extractions/{documentID}", s.handleDeleteExtraction)
		r.Get("/extractions/{documentID}/export", s.handleExportExtraction)
	})
	return r
}

// requestLog carries the request ID into the context, logs each request and
// counts it by route pattern.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		r = r.WithContext(common.WithRequestID(r.Context(), reqID))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status))

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http.request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"request_id", reqID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
