package adaptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/middleware"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthService struct {
	usecase.AuthService

	resp *response.AuthResponse
	err  error

	login        *request.LoginRequest
	refreshToken string
	logoutCalled bool
}

func (s *stubAuthService) Login(_ context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	s.login = req
	return s.resp, s.err
}

func (s *stubAuthService) Refresh(_ context.Context, token string, _ request.ClientMeta) (*response.AuthResponse, error) {
	s.refreshToken = token
	return s.resp, s.err
}

func (s *stubAuthService) Logout(_ context.Context, refresh, _ string, _ time.Time) error {
	s.refreshToken = refresh
	s.logoutCalled = true
	return s.err
}

func authResponse() *response.AuthResponse {
	return &response.AuthResponse{
		AccessToken:      "access",
		TokenType:        "Bearer",
		ExpiresAt:        time.Now().Add(15 * time.Minute),
		User:             response.UserResponse{ID: gofakeit.UUID(), Username: gofakeit.Username(), Email: gofakeit.Email()},
		RefreshToken:     "refresh-" + gofakeit.UUID(),
		RefreshExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("sets refresh and csrf cookies", func(t *testing.T) {
		resp := authResponse()
		svc := &stubAuthService{resp: resp}
		h := NewAuthHandler(svc, true, 7*24*time.Hour, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ana","password":"s3cret!"}`))
		req.Header.Set("User-Agent", "test-agent")
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ana", svc.login.Username)
		assert.Equal(t, "test-agent", svc.login.UserAgent)

		refresh := cookieByName(rec, middleware.RefreshCookieName)
		require.NotNil(t, refresh)
		assert.Equal(t, resp.RefreshToken, refresh.Value)
		assert.True(t, refresh.HttpOnly)
		assert.True(t, refresh.Secure)
		assert.Equal(t, refreshCookiePath, refresh.Path)
		assert.Equal(t, http.SameSiteStrictMode, refresh.SameSite)

		csrf := cookieByName(rec, middleware.CSRFCookieName)
		require.NotNil(t, csrf)
		assert.Len(t, csrf.Value, 64)
		assert.False(t, csrf.HttpOnly)

		assert.NotContains(t, rec.Body.String(), resp.RefreshToken)
	})

	t.Run("missing password fails validation", func(t *testing.T) {
		svc := &stubAuthService{resp: authResponse()}
		h := NewAuthHandler(svc, false, time.Hour, zap.NewNop())

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ana"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.login)
		assert.Contains(t, decodeEnvelope(t, rec).Errors, "password")
	})

	t.Run("malformed json", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthService{}, false, time.Hour, zap.NewNop())

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeEnvelope(t, rec).Message)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthService{err: usecase.ErrUnauthorized}, false, time.Hour, zap.NewNop())

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ana","password":"nope"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, cookieByName(rec, middleware.RefreshCookieName))
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("requires the cookie", func(t *testing.T) {
		svc := &stubAuthService{resp: authResponse()}
		h := NewAuthHandler(svc, false, time.Hour, zap.NewNop())

		rec := httptest.NewRecorder()
		h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.refreshToken)
	})

	t.Run("rotates the cookie", func(t *testing.T) {
		resp := authResponse()
		svc := &stubAuthService{resp: resp}
		h := NewAuthHandler(svc, false, time.Hour, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: "old-token"})
		rec := httptest.NewRecorder()
		h.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "old-token", svc.refreshToken)
		assert.Equal(t, resp.RefreshToken, cookieByName(rec, middleware.RefreshCookieName).Value)
	})
}

func TestAuthHandler_LogoutClearsCookies(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc, false, time.Hour, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: "live-token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.logoutCalled)
	assert.Equal(t, "live-token", svc.refreshToken)

	refresh := cookieByName(rec, middleware.RefreshCookieName)
	require.NotNil(t, refresh)
	assert.Empty(t, refresh.Value)
	assert.Less(t, refresh.MaxAge, 0)
}
