package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	RoleKey        contextKey = "role"
	TokenKey       contextKey = "token"
	TokenExpiryKey contextKey = "token_expiry"
	ClientIPKey    contextKey = "client_ip"
)

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userIDVal := ctx.Value(UserIDKey)
	if userIDVal == nil {
		return uuid.Nil, false
	}

	userIDStr, ok := userIDVal.(string)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	roleVal := ctx.Value(RoleKey)
	if roleVal == nil {
		return "", false
	}

	role, ok := roleVal.(string)
	return role, ok
}

func SetUserContext(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID.String())
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}

// GetTokenFromContext returns the access token jti and its expiry.
func GetTokenFromContext(ctx context.Context) (string, time.Time, bool) {
	jti, ok := ctx.Value(TokenKey).(string)
	if !ok || jti == "" {
		return "", time.Time{}, false
	}

	expiresAt, _ := ctx.Value(TokenExpiryKey).(time.Time)
	return jti, expiresAt, true
}

// SetTokenContext stores the access token jti so logout can blacklist it.
func SetTokenContext(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, TokenKey, jti)
	ctx = context.WithValue(ctx, TokenExpiryKey, expiresAt)
	return ctx
}

// SetClientIP stores the resolved caller address for ClientIP.
func SetClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}
