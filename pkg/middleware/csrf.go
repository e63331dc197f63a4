package middleware

import (
	"crypto/subtle"
	"net/http"

	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	RefreshCookieName = "refresh_token"
	CSRFCookieName    = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"
)

// CSRF enforces the double-submit cookie on state-changing requests that
// carry the refresh cookie. Requests without it pass through.
func CSRF(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if _, err := r.Cookie(RefreshCookieName); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CSRFCookieName)
			header := r.Header.Get(CSRFHeaderName)
			if err != nil || cookie.Value == "" || header == "" ||
				subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				logger.Warn("CSRF token mismatch",
					zap.String("path", r.URL.Path),
					zap.String("ip", utils.ClientIP(r)))
				utils.ResponseForbidden(w, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
