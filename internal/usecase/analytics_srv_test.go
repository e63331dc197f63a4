package usecase

import (
	"context"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/cache"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type analyticsFixture struct {
	svc       *analyticsService
	analytics *MockAnalyticsRepository
	publisher *recordingPublisher
}

func newAnalyticsFixture(churn utils.ChurnConfig) *analyticsFixture {
	f := &analyticsFixture{
		analytics: new(MockAnalyticsRepository),
		publisher: &recordingPublisher{},
	}
	f.svc = &analyticsService{
		analytics: f.analytics,
		publisher: f.publisher,
		cache:     cache.New(time.Minute),
		churn:     churn,
		loc:       time.UTC,
		log:       zap.NewNop(),
		now:       func() time.Time { return fixedNow },
	}
	return f
}

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAnalyticsService_Period(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		req      request.DashboardRequest
		wantFrom time.Time
		wantTo   time.Time
		errField string
	}{
		{
			name:     "defaults to the last 30 days including today",
			wantFrom: day("2025-05-12"),
			wantTo:   day("2025-06-11"),
		},
		{
			name:     "to alone keeps the 30 day window",
			req:      request.DashboardRequest{To: str("2025-06-01")},
			wantFrom: day("2025-05-03"),
			wantTo:   day("2025-06-02"),
		},
		{
			name:     "single day",
			req:      request.DashboardRequest{From: str("2025-06-01"), To: str("2025-06-01")},
			wantFrom: day("2025-06-01"),
			wantTo:   day("2025-06-02"),
		},
		{
			name:     "exactly 366 days",
			req:      request.DashboardRequest{From: str("2024-01-02"), To: str("2025-01-01")},
			wantFrom: day("2024-01-02"),
			wantTo:   day("2025-01-02"),
		},
		{
			name:     "367 days",
			req:      request.DashboardRequest{From: str("2024-01-01"), To: str("2025-01-01")},
			errField: "from",
		},
		{
			name:     "from after to",
			req:      request.DashboardRequest{From: str("2025-06-05"), To: str("2025-06-01")},
			errField: "from",
		},
		{
			name:     "bad to format",
			req:      request.DashboardRequest{To: str("06/01/2025")},
			errField: "to",
		},
		{
			name:     "bad from format",
			req:      request.DashboardRequest{From: str("yesterday")},
			errField: "from",
		},
	}

	svc := newAnalyticsFixture(utils.ChurnConfig{}).svc
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := svc.period(tt.req)
			if tt.errField != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.errField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestAnalyticsService_PeriodUsesBusinessZone(t *testing.T) {
	f := newAnalyticsFixture(utils.ChurnConfig{})
	jakarta := time.FixedZone("WIB", 7*3600)
	f.svc.loc = jakarta
	// 2025-06-10 20:00 UTC is already the 11th in Jakarta
	f.svc.now = func() time.Time { return time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC) }

	_, to, err := f.svc.period(request.DashboardRequest{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, jakarta), to)
}

func TestAnalyticsService_DashboardIsCached(t *testing.T) {
	f := newAnalyticsFixture(utils.ChurnConfig{})
	from, to := day("2025-05-12"), day("2025-06-11")

	f.analytics.On("StatusCounts", mock.Anything, from, to).Return([]entity.StatusCount{
		{Status: entity.BookingStatusCompleted, Count: 7},
		{Status: entity.BookingStatusCancelled, Count: 2},
	}, nil).Once()
	f.analytics.On("Totals", mock.Anything, from, to).Return(&entity.DashboardTotals{
		Revenue:         decimal.NewFromInt(1250),
		AverageRating:   4.5,
		ActiveCustomers: 5,
	}, nil).Once()
	f.analytics.On("TopServices", mock.Anything, from, to, 10).Return([]entity.ServicePerformance{}, nil).Once()
	f.analytics.On("StaffPerformance", mock.Anything, from, to, 10).Return([]entity.StaffPerformance{}, nil).Once()
	f.analytics.On("DailySeries", mock.Anything, from, to).Return([]entity.DailyPoint{
		{Day: day("2025-06-09"), Bookings: 3, Revenue: decimal.NewFromInt(400)},
	}, nil).Once()

	first, err := f.svc.Dashboard(context.Background(), request.DashboardRequest{})
	require.NoError(t, err)
	second, err := f.svc.Dashboard(context.Background(), request.DashboardRequest{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(9), first.TotalBookings)
	assert.Equal(t, int64(2), first.BookingsByState[string(entity.BookingStatusCancelled)])
	require.Len(t, first.Daily, 1)
	assert.Equal(t, "2025-06-09", first.Daily[0].Date)
	f.analytics.AssertExpectations(t)
}

func TestChurnRisk(t *testing.T) {
	tests := []struct {
		days, threshold int
		want            string
	}{
		{60, 60, RiskMedium},
		{119, 60, RiskMedium},
		{120, 60, RiskHigh},
		{400, 60, RiskHigh},
		{30, 30, RiskMedium},
		{60, 30, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, churnRisk(tt.days, tt.threshold), "days=%d threshold=%d", tt.days, tt.threshold)
	}
}

func TestAnalyticsService_Churn(t *testing.T) {
	medium := entity.CustomerActivity{
		UserID:        uuid.New(),
		Username:      "rina",
		LastBookingAt: fixedNow.AddDate(0, 0, -75),
		TotalBookings: 3,
		TotalSpent:    decimal.NewFromInt(450),
	}
	high := entity.CustomerActivity{
		UserID:        uuid.New(),
		Username:      "budi",
		LastBookingAt: fixedNow.AddDate(0, 0, -130),
		TotalBookings: 9,
		TotalSpent:    decimal.NewFromInt(1800),
	}

	t.Run("default threshold", func(t *testing.T) {
		f := newAnalyticsFixture(utils.ChurnConfig{})
		f.analytics.On("InactiveCustomers", mock.Anything, fixedNow.AddDate(0, 0, -60), 500).
			Return([]entity.CustomerActivity{medium, high}, nil)

		report, err := f.svc.Churn(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 60, report.ThresholdDays)
		require.Len(t, report.Customers, 2)

		assert.Equal(t, 75, report.Customers[0].DaysInactive)
		assert.Equal(t, RiskMedium, report.Customers[0].Risk)
		assert.Equal(t, 130, report.Customers[1].DaysInactive)
		assert.Equal(t, RiskHigh, report.Customers[1].Risk)
	})

	t.Run("configured threshold", func(t *testing.T) {
		f := newAnalyticsFixture(utils.ChurnConfig{InactiveDays: 30})
		f.analytics.On("InactiveCustomers", mock.Anything, fixedNow.AddDate(0, 0, -30), 500).
			Return([]entity.CustomerActivity{medium}, nil)

		report, err := f.svc.Churn(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 30, report.ThresholdDays)
		assert.Equal(t, RiskHigh, report.Customers[0].Risk)
	})

	t.Run("win-back only reaches high risk", func(t *testing.T) {
		f := newAnalyticsFixture(utils.ChurnConfig{InactiveDays: 60, WinbackLimit: 10})
		f.analytics.On("InactiveCustomers", mock.Anything, fixedNow.AddDate(0, 0, -60), 500).
			Return([]entity.CustomerActivity{medium, high}, nil)

		sent, err := f.svc.RunWinback(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, []string{events.CustomerWinback}, f.publisher.Types())
		assert.Equal(t, events.WinbackPayload{UserID: high.UserID, DaysInactive: 130}, f.publisher.payloads[0])
	})
}
