package wire

import (
	"net/http"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/middleware"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// App holds the router plus what the process needs to run and stop it.
type App struct {
	Router   *chi.Mux
	Service  *usecase.Service
	Limiters []*middleware.RateLimiter
}

// guards are the per-route middlewares shared by the wire functions.
type guards struct {
	auth      func(http.Handler) http.Handler
	csrf      func(http.Handler) http.Handler
	admin     func(http.Handler) http.Handler
	staff     func(http.Handler) http.Handler
	staffOrAd func(http.Handler) http.Handler
	authLimit func(http.Handler) http.Handler
}

// Wiring builds the services, handlers and router.
func Wiring(
	repo *repository.Repository,
	config *utils.Config,
	deps usecase.Dependencies,
	tokens middleware.TokenValidator,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, config, deps, logger)
	handler := adaptor.NewHandler(service, config, logger)

	apiLimiter := middleware.NewRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst)
	authLimiter := middleware.NewRateLimiter(config.RateLimit.AuthRPS, config.RateLimit.AuthBurst)

	g := &guards{
		auth:      middleware.Authenticate(tokens, deps.Blacklist, logger),
		csrf:      middleware.CSRF(logger),
		admin:     middleware.RequireRole(logger, string(entity.RoleAdmin)),
		staff:     middleware.RequireRole(logger, string(entity.RoleStaff)),
		staffOrAd: middleware.RequireRole(logger, string(entity.RoleStaff), string(entity.RoleAdmin)),
		authLimit: middleware.RateLimit(authLimiter),
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP(config.App.TrustedProxies))
	r.Use(middleware.Recover(logger, deps.Metrics))
	r.Use(middleware.Logger(logger, deps.Metrics))
	r.Use(middleware.CORS(config.App.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", nil)
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(otelhttp.NewMiddleware(config.App.Name))
		r.Use(middleware.RateLimit(apiLimiter))

		wireAuth(r, handler.Auth, g)
		wireUser(r, handler.User, g)
		wireCatalog(r, handler.Catalog, g)
		wireBooking(r, handler.Booking, g)
		wireReview(r, handler.Review, g)
		wireStaff(r, handler.Staff, g)
		wirePayment(r, handler.Payment, handler.Webhook, g)
		wireAdmin(r, handler, g)
	})

	return &App{
		Router:   r,
		Service:  service,
		Limiters: []*middleware.RateLimiter{apiLimiter, authLimiter},
	}
}
