package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxDailyBookings = 4

type StaffService interface {
	List(ctx context.Context, filter request.StaffFilter) (*response.PaginatedResponse[response.StaffResponse], error)
	UpdateMyProfile(ctx context.Context, staffID uuid.UUID, req *request.UpdateStaffProfileRequest) (*response.StaffResponse, error)
	Availability(ctx context.Context, staffID uuid.UUID, date string) (*response.AvailabilityResponse, error)
}

type staffService struct {
	staff    repository.StaffRepository
	bookings repository.BookingRepository
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func NewStaffService(repo *repository.Repository, config *utils.Config, log *zap.Logger) StaffService {
	return &staffService{
		staff:    repo.Staff,
		bookings: repo.Booking,
		loc:      config.Booking.Location(),
		log:      log.With(zap.String("service", "staff")),
		now:      time.Now,
	}
}

func (s *staffService) List(ctx context.Context, filter request.StaffFilter) (*response.PaginatedResponse[response.StaffResponse], error) {
	profiles, err := s.staff.FindAll(ctx, filter.Specialization, filter.Available, filter.Limit(), filter.Offset())
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	total, err := s.staff.CountAll(ctx, filter.Specialization, filter.Available)
	if err != nil {
		return nil, fmt.Errorf("count staff: %w", err)
	}

	data := make([]response.StaffResponse, 0, len(profiles))
	for _, p := range profiles {
		data = append(data, response.StaffToResponse(p))
	}
	return response.NewPaginatedResponse(data, filter.Page, filter.Limit(), total), nil
}

func (s *staffService) UpdateMyProfile(ctx context.Context, staffID uuid.UUID, req *request.UpdateStaffProfileRequest) (*response.StaffResponse, error) {
	profile, err := s.staff.FindByUserID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("find staff profile: %w", err)
	}
	if profile == nil {
		return nil, newError(ErrNotFound, "staff profile not found")
	}

	if req.Specializations != nil {
		profile.Specializations = dedupe(req.Specializations)
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.IsAvailable != nil {
		profile.IsAvailable = *req.IsAvailable
	}
	if req.MaxDailyBookings != nil {
		profile.MaxDailyBookings = *req.MaxDailyBookings
	}
	profile.UpdatedAt = s.now()

	if err := s.staff.Update(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, newError(ErrNotFound, "staff profile not found")
		}
		return nil, fmt.Errorf("update staff profile: %w", err)
	}

	s.log.Info("Staff profile updated", zap.String("staff_id", staffID.String()))

	resp := response.StaffToResponse(profile)
	return &resp, nil
}

// Availability lists the intervals already booked for the staff member on date.
func (s *staffService) Availability(ctx context.Context, staffID uuid.UUID, date string) (*response.AvailabilityResponse, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return nil, fieldError("date", "Must match the format 2006-01-02")
	}

	profile, err := s.staff.FindByUserID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("find staff profile: %w", err)
	}
	if profile == nil {
		return nil, newError(ErrNotFound, "staff member not found")
	}

	slots, err := s.bookings.FindStaffSlots(ctx, staffID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("find staff slots: %w", err)
	}

	booked := make([]response.SlotResponse, 0, len(slots))
	for _, sl := range slots {
		booked = append(booked, response.SlotResponse{
			BookingID: sl.BookingID.String(),
			StartAt:   sl.StartAt,
			EndAt:     sl.EndAt,
		})
	}
	return &response.AvailabilityResponse{
		StaffID:     staffID.String(),
		Date:        date,
		IsAvailable: profile.IsAvailable,
		Booked:      booked,
	}, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
