package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/room"
)

// NewRouter builds the gateway's HTTP handler: health probes, Prometheus
// metrics, and the WebSocket upgrade endpoint that carries the event
// protocol of spec §6. readinessProbe may be nil, in which case /health/ready
// always reports healthy once the process is up.
func NewRouter(rm *room.Manager, readinessProbe func() error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", liveness)
		r.Get("/ready", readiness(readinessProbe))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		serveWS(rm, w, req)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("gateway request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("gateway request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
