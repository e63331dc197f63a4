package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
	ListUsers(ctx context.Context, role *string, page request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	UpdateRole(ctx context.Context, actorID, userID uuid.UUID, req *request.UpdateRoleRequest) (*response.UserResponse, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
	staff repository.StaffRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewUserService(repo *repository.Repository, log *zap.Logger) UserService {
	return &userService{
		users: repo.User,
		staff: repo.Staff,
		log:   log.With(zap.String("service", "user")),
		now:   time.Now,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := us.users.FindByUsername(ctx, *req.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken != nil {
			return nil, newError(ErrConflict, "username already taken")
		}
		user.Username = *req.Username
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	user.UpdatedAt = us.now()

	if err := us.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "username already taken")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	us.log.Info("Profile updated", zap.String("user_id", userID.String()))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) ListUsers(ctx context.Context, role *string, page request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	var roleFilter *entity.UserRole
	if role != nil {
		r := entity.UserRole(*role)
		if !r.Valid() {
			return nil, fieldError("role", "Must be one of: customer, staff, admin")
		}
		roleFilter = &r
	}

	users, err := us.users.FindAll(ctx, roleFilter, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := us.users.CountAll(ctx, roleFilter)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	data := make([]response.UserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, response.UserToResponse(u))
	}
	return response.NewPaginatedResponse(data, page.Page, page.Limit(), total), nil
}

// UpdateRole changes a user's role; promotion to staff also opens a staff profile.
func (us *userService) UpdateRole(ctx context.Context, actorID, userID uuid.UUID, req *request.UpdateRoleRequest) (*response.UserResponse, error) {
	role := entity.UserRole(req.Role)
	if actorID == userID && role != entity.RoleAdmin {
		return nil, newError(ErrInvalidState, "admins cannot demote themselves")
	}

	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := us.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	user.Role = role

	if role == entity.RoleStaff {
		now := us.now()
		profile := &entity.StaffProfile{
			UserID:           userID,
			Specializations:  []string{},
			IsAvailable:      true,
			MaxDailyBookings: defaultMaxDailyBookings,
			Rating:           decimal.Zero,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := us.staff.CreateIfMissing(ctx, profile); err != nil {
			return nil, fmt.Errorf("create staff profile: %w", err)
		}
	}

	us.log.Info("User role changed",
		zap.String("actor_id", actorID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return newError(ErrInvalidState, "admins cannot delete their own account")
	}

	if err := us.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return newError(ErrNotFound, "user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	us.log.Info("User deleted",
		zap.String("actor_id", actorID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

func (us *userService) findUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := us.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, newError(ErrNotFound, "user not found")
	}
	return user, nil
}
