package job

import (
	"context"
	"fmt"
	"time"

	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout bounds a single job run.
const runTimeout = 2 * time.Minute

// Task is one unit of periodic work. It reports how many rows it touched.
type Task func(ctx context.Context) (int, error)

type Scheduler struct {
	cron    *cron.Cron
	metrics *metrics.Metrics
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(loc *time.Location, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	log = log.With(zap.String("component", "scheduler"))
	cl := cronLogger{log.Sugar()}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		metrics: m,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers task under name. A blank schedule disables the job.
func (s *Scheduler) Add(name, spec string, task Task) error {
	if spec == "" {
		s.log.Info("Job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Run(name, task) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info("Job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Run executes task once, recording its outcome.
func (s *Scheduler) Run(name string, task Task) {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := task(ctx)
	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(name, metrics.Result(err)).Inc()
	}

	if err != nil {
		s.log.Error("Job failed", zap.String("job", name), zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	if n > 0 {
		s.log.Info("Job finished", zap.String("job", name), zap.Int("affected", n), zap.Duration("took", time.Since(start)))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels in-flight runs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}

// Register wires the periodic jobs of the booking service.
func Register(s *Scheduler, svc *usecase.Service, specs utils.CronConfig) error {
	jobs := []struct {
		name string
		spec string
		task Task
	}{
		{"retry_queue", specs.RetrySpec, svc.Retry.ProcessDue},
		{"booking_reminders", specs.ReminderSpec, svc.Booking.SendReminders},
		{"expire_pending", specs.ExpirySpec, func(ctx context.Context) (int, error) {
			bookings, err := svc.Booking.ExpireStalePending(ctx)
			if err != nil {
				return bookings, err
			}
			payments, err := svc.Payment.ExpireStale(ctx)
			return bookings + int(payments), err
		}},
		{"auth_cleanup", specs.CleanupSpec, func(ctx context.Context) (int, error) {
			sessions, otps, err := svc.Auth.PurgeExpired(ctx)
			return int(sessions + otps), err
		}},
		{"churn_winback", specs.ChurnSpec, svc.Analytics.RunWinback},
	}

	for _, j := range jobs {
		if err := s.Add(j.name, j.spec, j.task); err != nil {
			return err
		}
	}
	return nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
