package usecase

import (
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/cache"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/notify"
	"cleaning-booking/pkg/payment"
	"cleaning-booking/pkg/storage"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

// Dependencies are the outside collaborators the services need.
// Storage, Gateway and Publisher may be nil.
type Dependencies struct {
	Tokens    TokenIssuer
	Blacklist auth.TokenBlacklist
	Storage   storage.ObjectStorage
	Gateway   payment.Gateway
	Mailer    notify.Sender
	SMS       notify.Sender
	Cache     *cache.TTLCache
	Metrics   *metrics.Metrics
	// Publisher defaults to an in-process dispatcher feeding Notification.Handle.
	Publisher events.Publisher
}

type Service struct {
	Auth           AuthService
	User           UserService
	Catalog        CatalogService
	Booking        BookingService
	Review         ReviewService
	Staff          StaffService
	Payment        PaymentService
	Webhook        WebhookService
	Retry          RetryService
	Notification   NotificationService
	Recommendation RecommendationService
	Analytics      AnalyticsService

	Publisher events.Publisher
}

func NewService(repo *repository.Repository, config *utils.Config, deps Dependencies, log *zap.Logger) *Service {
	retry := NewRetryService(repo, deps.Metrics, config, log)
	notification := NewNotificationService(repo, deps.Mailer, deps.SMS, retry, deps.Metrics, config, log)

	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NewInlineDispatcher(notification.Handle, log)
	}

	booking := NewBookingService(repo, publisher, deps.Metrics, config, log)

	return &Service{
		Auth:           NewAuthService(repo, deps.Tokens, deps.Blacklist, notification, config, log),
		User:           NewUserService(repo, log),
		Catalog:        NewCatalogService(repo, deps.Storage, deps.Cache, log),
		Booking:        booking,
		Review:         NewReviewService(repo, log),
		Staff:          NewStaffService(repo, config, log),
		Payment:        NewPaymentService(repo, deps.Gateway, deps.Metrics, config, log),
		Webhook:        NewWebhookService(repo, booking, retry, deps.Gateway, publisher, deps.Metrics, config, log),
		Retry:          retry,
		Notification:   notification,
		Recommendation: NewRecommendationService(repo, log),
		Analytics:      NewAnalyticsService(repo, publisher, deps.Cache, config, log),
		Publisher:      publisher,
	}
}
