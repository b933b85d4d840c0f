package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency keyed by the matched chi route
// pattern, so ids in paths do not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.Observe(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
