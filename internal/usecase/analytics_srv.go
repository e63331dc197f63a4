package usecase

import (
	"context"
	"fmt"
	"time"

	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/cache"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	analyticsCachePrefix = "analytics:"
	defaultDashboardDays = 30
	maxDashboardDays     = 366
	dashboardTopN        = 10
	churnScanLimit       = 500

	RiskHigh   = "high"
	RiskMedium = "medium"
)

type AnalyticsService interface {
	Dashboard(ctx context.Context, req request.DashboardRequest) (*response.DashboardResponse, error)
	Churn(ctx context.Context) (*response.ChurnResponse, error)

	// background job
	RunWinback(ctx context.Context) (int, error)
}

type analyticsService struct {
	analytics repository.AnalyticsRepository
	publisher events.Publisher
	cache     *cache.TTLCache
	churn     utils.ChurnConfig
	loc       *time.Location
	log       *zap.Logger
	now       func() time.Time
}

func NewAnalyticsService(repo *repository.Repository, publisher events.Publisher, c *cache.TTLCache, config *utils.Config, log *zap.Logger) AnalyticsService {
	return &analyticsService{
		analytics: repo.Analytics,
		publisher: publisher,
		cache:     c,
		churn:     config.Churn,
		loc:       config.Booking.Location(),
		log:       log.With(zap.String("service", "analytics")),
		now:       time.Now,
	}
}

func (s *analyticsService) Dashboard(ctx context.Context, req request.DashboardRequest) (*response.DashboardResponse, error) {
	from, to, err := s.period(req)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%sdashboard:%s:%s", analyticsCachePrefix, from.Format(dateLayout), to.Format(dateLayout))
	return cache.GetOrLoad(s.cache, key, func() (*response.DashboardResponse, error) {
		return s.buildDashboard(ctx, from, to)
	})
}

func (s *analyticsService) buildDashboard(ctx context.Context, from, to time.Time) (*response.DashboardResponse, error) {
	counts, err := s.analytics.StatusCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	totals, err := s.analytics.Totals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	top, err := s.analytics.TopServices(ctx, from, to, dashboardTopN)
	if err != nil {
		return nil, err
	}
	staff, err := s.analytics.StaffPerformance(ctx, from, to, dashboardTopN)
	if err != nil {
		return nil, err
	}
	daily, err := s.analytics.DailySeries(ctx, from, to)
	if err != nil {
		return nil, err
	}

	resp := &response.DashboardResponse{
		From:            from,
		To:              to,
		BookingsByState: make(map[string]int64, len(counts)),
		Revenue:         totals.Revenue,
		AverageRating:   totals.AverageRating,
		ActiveCustomers: totals.ActiveCustomers,
		TopServices:     make([]response.ServicePerformanceEntry, 0, len(top)),
		Staff:           make([]response.StaffPerformanceEntry, 0, len(staff)),
		Daily:           make([]response.DailyEntry, 0, len(daily)),
	}
	for _, c := range counts {
		resp.BookingsByState[string(c.Status)] = c.Count
		resp.TotalBookings += c.Count
	}
	for _, t := range top {
		resp.TopServices = append(resp.TopServices, response.ServicePerformanceEntry{
			ServiceID: t.ServiceID.String(),
			Name:      t.Name,
			Bookings:  t.Bookings,
			Revenue:   t.Revenue,
		})
	}
	for _, st := range staff {
		resp.Staff = append(resp.Staff, response.StaffPerformanceEntry{
			StaffID:       st.StaffID.String(),
			Username:      st.Username,
			CompletedJobs: st.CompletedJobs,
			Rating:        st.Rating,
			Revenue:       st.Revenue,
		})
	}
	for _, d := range daily {
		resp.Daily = append(resp.Daily, response.DailyEntry{
			Date:     d.Day.Format(dateLayout),
			Bookings: d.Bookings,
			Revenue:  d.Revenue,
		})
	}
	return resp, nil
}

// Churn flags customers whose last booking is older than the inactivity threshold.
func (s *analyticsService) Churn(ctx context.Context) (*response.ChurnResponse, error) {
	threshold := s.churn.InactiveDays
	if threshold <= 0 {
		threshold = 60
	}
	now := s.now()

	inactive, err := s.analytics.InactiveCustomers(ctx, now.AddDate(0, 0, -threshold), churnScanLimit)
	if err != nil {
		return nil, err
	}

	customers := make([]response.ChurnEntry, 0, len(inactive))
	for _, c := range inactive {
		days := int(now.Sub(c.LastBookingAt).Hours() / 24)
		customers = append(customers, response.ChurnEntry{
			UserID:        c.UserID.String(),
			Username:      c.Username,
			Email:         c.Email,
			LastBookingAt: c.LastBookingAt,
			DaysInactive:  days,
			TotalBookings: c.TotalBookings,
			TotalSpent:    c.TotalSpent,
			Risk:          churnRisk(days, threshold),
		})
	}
	return &response.ChurnResponse{ThresholdDays: threshold, Customers: customers}, nil
}

// RunWinback sends one win-back message per high-risk customer, capped per run.
func (s *analyticsService) RunWinback(ctx context.Context) (int, error) {
	report, err := s.Churn(ctx)
	if err != nil {
		return 0, err
	}

	limit := s.churn.WinbackLimit
	sent := 0
	for _, c := range report.Customers {
		if limit > 0 && sent >= limit {
			break
		}
		if c.Risk != RiskHigh {
			continue
		}
		userID, err := uuid.Parse(c.UserID)
		if err != nil {
			continue
		}
		if err := s.publisher.Publish(ctx, events.CustomerWinback, events.WinbackPayload{
			UserID:       userID,
			DaysInactive: c.DaysInactive,
		}); err != nil {
			s.log.Warn("Failed to publish win-back", zap.Error(err), zap.String("user_id", c.UserID))
			continue
		}
		sent++
	}

	s.log.Info("Win-back run finished", zap.Int("flagged", len(report.Customers)), zap.Int("sent", sent))
	return sent, nil
}

// period resolves the inclusive day range into a half-open [from, to) in the business zone.
func (s *analyticsService) period(req request.DashboardRequest) (time.Time, time.Time, error) {
	today := s.now().In(s.loc)
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -defaultDashboardDays)

	if req.To != nil {
		t, err := time.ParseInLocation(dateLayout, *req.To, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fieldError("to", "Must match the format 2006-01-02")
		}
		to = t.AddDate(0, 0, 1)
		from = to.AddDate(0, 0, -defaultDashboardDays)
	}
	if req.From != nil {
		f, err := time.ParseInLocation(dateLayout, *req.From, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fieldError("from", "Must match the format 2006-01-02")
		}
		from = f
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fieldError("from", "Must not be after to")
	}
	if to.Sub(from) > maxDashboardDays*24*time.Hour {
		return time.Time{}, time.Time{}, fieldError("from", fmt.Sprintf("Period must be at most %d days", maxDashboardDays))
	}
	return from, to, nil
}

func churnRisk(daysInactive, threshold int) string {
	if daysInactive >= 2*threshold {
		return RiskHigh
	}
	return RiskMedium
}
