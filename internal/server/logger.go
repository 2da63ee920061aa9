package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shandutta/homematch-v2-sub002/internal/metrics"

	"github.com/rs/zerolog/log"
)

// RequestLogger is a middleware to log HTTP requests and feed the
// request metrics.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := routeLabel(r.URL.Path)

		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.statusCode)).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.statusCode).
			Str("ip", r.RemoteAddr).
			Dur("duration", elapsed).
			Msg("Request processed")
	})
}

// routeLabel collapses request paths onto their route so metric labels
// stay low-cardinality.
func routeLabel(path string) string {
	switch {
	case path == "/":
		return "index"
	case path == "/favicon.svg":
		return "favicon"
	case path == "/metrics":
		return "metrics"
	case path == "/api/datasets":
		return "datasets"
	case strings.HasPrefix(path, "/api/regions/"):
		return "regions"
	case strings.HasPrefix(path, "/api/select/"):
		return "select"
	case strings.HasPrefix(path, "/api/diagnostics/"):
		return "diagnostics"
	case strings.HasPrefix(path, "/overlays/"):
		return "overlays"
	default:
		return "other"
	}
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing to the underlying response writer.
func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
