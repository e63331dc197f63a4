package middleware

import (
	"net/http"
	"net/netip"

	"cleaning-booking/pkg/utils"
)

// RealIP resolves the caller address once per request. Forwarding headers
// count only when the TCP peer is a trusted proxy; with none configured the
// peer address is used as is.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ResolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(utils.SetClientIP(r.Context(), ip)))
		})
	}
}
