package wire

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/middleware"
	"cleaning-booking/pkg/utils"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	app    *App
	tokens *auth.JWTService
}

// newTestApp wires the real router. No request here reaches the database.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	config := &utils.Config{
		App: utils.AppConfig{Name: "cleaning-booking-test"},
		JWT: utils.JWTConfig{
			Secret:     gofakeit.LetterN(32),
			Issuer:     "test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: time.Hour,
		},
		RateLimit: utils.RateLimitConfig{RPS: 100, Burst: 100, AuthRPS: 100, AuthBurst: 100},
	}
	tokens := auth.NewJWTService(config.JWT)

	deps := usecase.Dependencies{
		Tokens:    tokens,
		Blacklist: auth.NewMemoryTokenBlacklist(),
		Metrics:   metrics.New(),
	}
	app := Wiring(repository.NewRepository(nil, zap.NewNop()), config, deps, tokens, zap.NewNop())
	return &testApp{app: app, tokens: tokens}
}

func (a *testApp) bearer(t *testing.T, role entity.UserRole) string {
	t.Helper()
	tok, err := a.tokens.GenerateAccessToken(uuid.New(), gofakeit.Username(), string(role))
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.app.Router.ServeHTTP(rec, req)
	return rec
}

func TestWiring_Health(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWiring_Metrics(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWiring_AdminGuards(t *testing.T) {
	a := newTestApp(t)

	t.Run("anonymous", func(t *testing.T) {
		rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("customer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req.Header.Set("Authorization", a.bearer(t, entity.RoleCustomer))

		rec := a.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("staff cannot list all bookings", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
		req.Header.Set("Authorization", a.bearer(t, entity.RoleStaff))

		rec := a.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		rec := a.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestWiring_RefreshNeedsCSRF(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: uuid.NewString()})
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "abc"})
	req.Header.Set(middleware.CSRFHeaderName, "xyz")

	rec := a.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWiring_CSRFIssuesCookie(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWiring_UnknownRoute(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
