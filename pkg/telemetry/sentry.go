package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// SetupSentry initializes the global Sentry hub. The returned func flushes
// buffered events on shutdown.
func SetupSentry(dsn, environment string, logger *zap.Logger) (func(), error) {
	if dsn == "" {
		logger.Info("Sentry disabled, no DSN configured")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	logger.Info("Sentry initialized", zap.String("environment", environment))

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureError reports err when a Sentry client is bound. It is a no-op otherwise.
func CaptureError(err error) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.CaptureException(err)
}
