// main.go
package main

import (
	"context"
	"log"
	"time"

	"cleaning-booking/cmd"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/events"
	"cleaning-booking/internal/job"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/internal/wire"
	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/cache"
	"cleaning-booking/pkg/database"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/notify"
	"cleaning-booking/pkg/payment"
	"cleaning-booking/pkg/storage"
	"cleaning-booking/pkg/telemetry"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("env", config.App.Env),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Error reporting and tracing
	flushSentry, err := telemetry.SetupSentry(config.Telemetry.SentryDSN, config.App.Env, logger)
	if err != nil {
		logger.Fatal("Failed to init Sentry", zap.Error(err))
	}
	defer flushSentry()

	shutdownTracing, err := telemetry.SetupTracing(ctx, config.App.Name, config.Telemetry.OTLPEndpoint, config.Telemetry.OTLPInsecure, logger)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer tcancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Outside collaborators
	tokens := auth.NewJWTService(config.JWT)
	deps, closeDeps := buildDependencies(ctx, config, tokens, logger)
	defer closeDeps()

	// Wire all dependencies
	app := wire.Wiring(repos, config, deps, tokens, logger)

	for _, limiter := range app.Limiters {
		limiter.StartCleanup(ctx, time.Minute)
	}
	deps.Cache.StartJanitor(ctx, time.Minute)

	// Event consumer feeds notifications when a broker is configured
	if config.RabbitMQ.URL != "" {
		consumer, err := events.NewConsumer(config.RabbitMQ.URL, config.RabbitMQ.Exchange, config.RabbitMQ.Queue, events.AllTypes, logger)
		if err != nil {
			logger.Fatal("Failed to start event consumer", zap.Error(err))
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Run(ctx, app.Service.Notification.Handle); err != nil {
				logger.Error("Event consumer stopped", zap.Error(err))
			}
		}()
	}

	// Background jobs
	scheduler := job.NewScheduler(config.Booking.Location(), deps.Metrics, logger)
	if err := job.Register(scheduler, app.Service, config.Cron); err != nil {
		logger.Fatal("Failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), config.App.ShutdownTimeout)
	defer stopCancel()
	scheduler.Stop(stopCtx)
	cancel()

	logger.Info("Server stopped")
}

// buildDependencies connects the optional backends. The returned func
// closes whatever was opened.
func buildDependencies(ctx context.Context, config *utils.Config, tokens *auth.JWTService, logger *zap.Logger) (usecase.Dependencies, func()) {
	var closers []func() error
	deps := usecase.Dependencies{
		Tokens:  tokens,
		Mailer:  notify.NewMailer(config.Email, logger),
		SMS:     notify.NewSMS(config.Twilio, logger),
		Cache:   cache.New(config.Cache.TTL),
		Metrics: metrics.New(),
	}

	// 1. Token blacklist
	if config.Redis.Addr != "" {
		client, err := auth.NewRedisClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		deps.Blacklist = auth.NewRedisTokenBlacklist(client)
		closers = append(closers, client.Close)
		logger.Info("Redis token blacklist enabled", zap.String("addr", config.Redis.Addr))
	} else {
		deps.Blacklist = auth.NewMemoryTokenBlacklist()
		logger.Warn("Redis not configured, using in-memory token blacklist")
	}

	// 2. Object storage for service images
	if config.Storage.Bucket != "" {
		s3, err := storage.NewS3Storage(ctx, config.Storage, logger)
		if err != nil {
			logger.Fatal("Failed to init object storage", zap.Error(err))
		}
		deps.Storage = s3
	} else {
		logger.Warn("Object storage not configured, image uploads disabled")
	}

	// 3. Card payments
	if config.Stripe.SecretKey != "" {
		gateway, err := payment.NewStripeGateway(config.Stripe.SecretKey, config.Stripe.WebhookSecret, logger)
		if err != nil {
			logger.Fatal("Failed to init Stripe", zap.Error(err))
		}
		deps.Gateway = gateway
	} else {
		logger.Warn("Stripe not configured, card payments disabled")
	}

	// 4. Event broker, otherwise events are dispatched in-process
	if config.RabbitMQ.URL != "" {
		publisher, err := events.NewAMQPPublisher(config.RabbitMQ.URL, config.RabbitMQ.Exchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		deps.Publisher = publisher
		closers = append(closers, publisher.Close)
		logger.Info("Publishing domain events to RabbitMQ", zap.String("exchange", config.RabbitMQ.Exchange))
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("Failed to close dependency", zap.Error(err))
			}
		}
	}
}
