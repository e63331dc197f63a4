package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleaning-booking/internal/job"
	"cleaning-booking/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_RunRecordsOutcome(t *testing.T) {
	m := metrics.New()
	s := job.NewScheduler(time.UTC, m, zap.NewNop())

	s.Run("ok", func(ctx context.Context) (int, error) { return 3, nil })
	s.Run("ok", func(ctx context.Context) (int, error) { return 0, nil })
	s.Run("boom", func(ctx context.Context) (int, error) { return 0, errors.New("db down") })

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("ok", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("boom", "error")))
}

func TestScheduler_RunPassesDeadline(t *testing.T) {
	s := job.NewScheduler(time.UTC, nil, zap.NewNop())

	var hasDeadline bool
	s.Run("deadline", func(ctx context.Context) (int, error) {
		_, hasDeadline = ctx.Deadline()
		return 0, nil
	})
	assert.True(t, hasDeadline)
}

func TestScheduler_Add(t *testing.T) {
	s := job.NewScheduler(time.UTC, nil, zap.NewNop())
	noop := func(ctx context.Context) (int, error) { return 0, nil }

	t.Run("blank schedule disables the job", func(t *testing.T) {
		require.NoError(t, s.Add("off", "", noop))
	})

	t.Run("descriptor", func(t *testing.T) {
		require.NoError(t, s.Add("every", "@every 1m", noop))
	})

	t.Run("invalid schedule", func(t *testing.T) {
		err := s.Add("bad", "not a schedule", noop)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schedule bad")
	})
}

func TestScheduler_StopCancelsRuns(t *testing.T) {
	s := job.NewScheduler(time.UTC, nil, zap.NewNop())
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	var err error
	s.Run("after-stop", func(ctx context.Context) (int, error) {
		err = ctx.Err()
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
