package middleware

import (
	"fmt"
	"net/http"

	"cleaning-booking/pkg/metrics"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Recover turns a panic into a 500 envelope and reports it to Sentry.
func Recover(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logger.Error("PANIC recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					if m != nil {
						m.PanicsRecovered.Inc()
					}

					hub := sentry.CurrentHub().Clone()
					hub.Scope().SetRequest(r)
					hub.Recover(fmt.Errorf("panic: %v", rec))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"status":false,"message":"Internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
