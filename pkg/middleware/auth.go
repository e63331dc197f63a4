package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator is the part of auth.JWTService the middleware needs.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// Authenticate validates the Bearer access token and rejects revoked ones.
func Authenticate(tokens TokenValidator, blacklist auth.TokenBlacklist, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					utils.ResponseUnauthorized(w, "Access token has expired")
					return
				}
				logger.Warn("Invalid access token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid access token")
				return
			}

			revoked, err := blacklist.IsBlacklisted(r.Context(), claims.ID)
			if err != nil {
				logger.Error("Failed to check token blacklist", zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if revoked {
				utils.ResponseUnauthorized(w, "Access token has been revoked")
				return
			}

			id, err := uuid.Parse(claims.UserID)
			if err != nil || id == uuid.Nil {
				utils.ResponseUnauthorized(w, "Invalid access token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), id, claims.Role)
			ctx = utils.SetTokenContext(ctx, claims.ID, claims.ExpiresAt.Time)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the authenticated role is one of roles.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if _, ok := allowed[role]; !ok {
				userID, _ := utils.GetUserIDFromContext(r.Context())
				logger.Warn("Role check: access denied",
					zap.String("user_id", userID.String()),
					zap.String("role", role),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
