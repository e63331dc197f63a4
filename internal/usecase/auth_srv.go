package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string, meta request.ClientMeta) (*response.AuthResponse, error)
	Logout(ctx context.Context, refreshToken, jti string, accessExpiresAt time.Time) error
	SendOTP(ctx context.Context, req *request.SendOTPRequest) error
	VerifyEmail(ctx context.Context, req *request.VerifyEmailRequest) error
	ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
	PurgeExpired(ctx context.Context) (sessions, otps int64, err error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, username, role string) (*auth.AccessToken, error)
}

// EmailNotifier sends one transactional email and records the attempt.
type EmailNotifier interface {
	SendEmail(ctx context.Context, userID *uuid.UUID, to, subject, body, eventType string) error
}

type authService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	otps      repository.OTPRepository
	staff     repository.StaffRepository
	tokens    TokenIssuer
	blacklist auth.TokenBlacklist
	notifier  EmailNotifier
	config    *utils.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(
	repo *repository.Repository,
	tokens TokenIssuer,
	blacklist auth.TokenBlacklist,
	notifier EmailNotifier,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		users:     repo.User,
		sessions:  repo.Session,
		otps:      repo.OTP,
		staff:     repo.Staff,
		tokens:    tokens,
		blacklist: blacklist,
		notifier:  notifier,
		config:    config,
		log:       log.With(zap.String("service", "auth")),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. Email and username must be free
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, newError(ErrConflict, "email already registered")
	}

	existing, err = s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, newError(ErrConflict, "username already taken")
	}

	// 2. Hash password
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 3. Create the customer
	now := s.now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:     req.Username,
		Email:        email,
		PasswordHash: hashed,
		Phone:        req.Phone,
		Role:         entity.RoleCustomer,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "email or username already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// 4. Verification code goes out in the background
	go s.sendVerificationOTP(user)

	// 5. Log the new user in
	resp, err := s.issueTokens(ctx, user, req.ClientMeta)
	if err != nil {
		return nil, err
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return resp, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	identifier := strings.TrimSpace(req.Username)

	// 1. Look up by email first, then by username
	user, err := s.users.FindByEmail(ctx, strings.ToLower(identifier))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		user, err = s.users.FindByUsername(ctx, identifier)
		if err != nil {
			return nil, fmt.Errorf("find user by username: %w", err)
		}
	}

	// 2. Same answer for unknown user and wrong password
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Failed login attempt", zap.String("identifier", identifier))
		return nil, newError(ErrUnauthorized, "invalid credentials")
	}

	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, newError(ErrForbidden, "account is deactivated")
	}

	resp, err := s.issueTokens(ctx, user, req.ClientMeta)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return resp, nil
}

// Refresh rotates the refresh token: the presented session is revoked and a new one issued.
func (s *authService) Refresh(ctx context.Context, refreshToken string, meta request.ClientMeta) (*response.AuthResponse, error) {
	token, err := uuid.Parse(refreshToken)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid refresh token")
	}

	session, err := s.sessions.FindValidSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, newError(ErrUnauthorized, "refresh token expired or revoked")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("find session user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, newError(ErrUnauthorized, "account is no longer active")
	}

	if err := s.sessions.Revoke(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			// a concurrent refresh rotated it first
			return nil, newError(ErrUnauthorized, "refresh token expired or revoked")
		}
		return nil, fmt.Errorf("revoke rotated session: %w", err)
	}

	return s.issueTokens(ctx, user, meta)
}

func (s *authService) Logout(ctx context.Context, refreshToken, jti string, accessExpiresAt time.Time) error {
	// 1. Revoke the refresh session when the cookie came along.
	// An already revoked session still counts as logged out.
	if token, err := uuid.Parse(refreshToken); err == nil {
		if err := s.sessions.Revoke(ctx, token); err != nil && !errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	// 2. Blacklist the access token for the rest of its lifetime
	if jti != "" {
		if ttl := accessExpiresAt.Sub(s.now()); ttl > 0 {
			if err := s.blacklist.AddToBlacklist(ctx, jti, ttl); err != nil {
				return fmt.Errorf("blacklist access token: %w", err)
			}
		}
	}

	s.log.Info("User logged out", zap.String("jti", jti))
	return nil
}

func (s *authService) SendOTP(ctx context.Context, req *request.SendOTPRequest) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return fmt.Errorf("find user for OTP: %w", err)
	}
	if user == nil {
		return newError(ErrNotFound, "user not found")
	}

	otpType := entity.OTPType(req.Type)
	if otpType == entity.OTPTypeEmailVerification && user.EmailVerified {
		return newError(ErrInvalidState, "email already verified")
	}

	return s.issueOTP(ctx, user, otpType)
}

func (s *authService) VerifyEmail(ctx context.Context, req *request.VerifyEmailRequest) error {
	user, err := s.consumeOTP(ctx, req.Email, req.OTP, entity.OTPTypeEmailVerification)
	if err != nil {
		return err
	}

	user.EmailVerified = true
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.log.Info("Email verified", zap.String("user_id", user.ID.String()))
	return nil
}

// ForgotPassword answers the same way whether or not the email is known.
func (s *authService) ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return fmt.Errorf("find user for password reset: %w", err)
	}
	if user == nil || !user.IsActive {
		s.log.Info("Password reset requested for unknown email")
		return nil
	}

	return s.issueOTP(ctx, user, entity.OTPTypePasswordReset)
}

func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error {
	user, err := s.consumeOTP(ctx, req.Email, req.OTP, entity.OTPTypePasswordReset)
	if err != nil {
		return err
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Every device has to log in again.
	if err := s.sessions.RevokeAllUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions after reset: %w", err)
	}

	s.log.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *authService) PurgeExpired(ctx context.Context) (int64, int64, error) {
	sessions, err := s.sessions.CleanExpiredSessions(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("clean sessions: %w", err)
	}
	otps, err := s.otps.DeleteStale(ctx)
	if err != nil {
		return sessions, 0, fmt.Errorf("clean OTPs: %w", err)
	}
	return sessions, otps, nil
}

// ==================== HELPER METHODS ====================

func (s *authService) issueTokens(ctx context.Context, user *entity.User, meta request.ClientMeta) (*response.AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	now := s.now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    user.ID,
		Token:     utils.GenerateSessionToken(),
		UserAgent: optional(meta.UserAgent),
		IPAddress: optional(meta.IPAddress),
		ExpiresAt: now.Add(s.config.JWT.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &response.AuthResponse{
		AccessToken:      access.Token,
		TokenType:        "Bearer",
		ExpiresAt:        access.ExpiresAt,
		User:             response.UserToResponse(user),
		RefreshToken:     session.Token.String(),
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authService) issueOTP(ctx context.Context, user *entity.User, otpType entity.OTPType) error {
	// Only the newest code stays usable.
	if err := s.otps.InvalidateActive(ctx, user.ID, otpType); err != nil {
		return fmt.Errorf("invalidate previous OTPs: %w", err)
	}

	now := s.now()
	code := utils.GenerateOTP(s.config.OTP.Length)
	expiresAt := now.Add(time.Duration(s.config.OTP.ExpiryMinutes) * time.Minute)

	otp := &entity.OTP{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    user.ID,
		Email:     user.Email,
		OTPCode:   code,
		OTPType:   otpType,
		ExpiresAt: expiresAt,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return fmt.Errorf("save OTP: %w", err)
	}

	subject, body := otpMessage(otpType, code, s.config.OTP.ExpiryMinutes)
	if err := s.notifier.SendEmail(ctx, &user.ID, user.Email, subject, body, "auth."+string(otpType)); err != nil {
		// the notification layer queues a retry
		s.log.Warn("OTP email not delivered", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	s.log.Debug("OTP issued",
		zap.String("user_id", user.ID.String()),
		zap.String("otp_type", string(otpType)),
		zap.Time("expires_at", expiresAt))
	return nil
}

func (s *authService) consumeOTP(ctx context.Context, email, code string, otpType entity.OTPType) (*entity.User, error) {
	email = strings.ToLower(email)

	otp, err := s.otps.FindActiveOTP(ctx, email, otpType)
	if err != nil {
		return nil, fmt.Errorf("find OTP: %w", err)
	}
	if otp == nil {
		return nil, fieldError("otp", "Invalid or expired code")
	}

	if subtle.ConstantTimeCompare([]byte(otp.OTPCode), []byte(code)) != 1 {
		limit := s.maxOTPAttempts()
		attempts, err := s.otps.RecordFailedAttempt(ctx, otp.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("record OTP attempt: %w", err)
		}
		if attempts >= limit {
			s.log.Warn("OTP burned after too many attempts",
				zap.String("user_id", otp.UserID.String()),
				zap.String("otp_type", string(otpType)))
			return nil, fieldError("otp", "Too many attempts, request a new code")
		}
		return nil, fieldError("otp", "Invalid or expired code")
	}

	if err := s.otps.MarkAsUsed(ctx, otp.ID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			// consumed concurrently
			return nil, fieldError("otp", "Invalid or expired code")
		}
		return nil, fmt.Errorf("mark OTP used: %w", err)
	}

	user, err := s.users.FindByID(ctx, otp.UserID)
	if err != nil {
		return nil, fmt.Errorf("find OTP user: %w", err)
	}
	if user == nil {
		return nil, newError(ErrNotFound, "user not found")
	}
	return user, nil
}

func (s *authService) maxOTPAttempts() int {
	if s.config.OTP.MaxAttempts > 0 {
		return s.config.OTP.MaxAttempts
	}
	return 5
}

func (s *authService) sendVerificationOTP(user *entity.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.issueOTP(ctx, user, entity.OTPTypeEmailVerification); err != nil {
		s.log.Error("Failed to send verification OTP", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
}

func otpMessage(otpType entity.OTPType, code string, minutes int) (string, string) {
	if otpType == entity.OTPTypePasswordReset {
		return "Your password reset code",
			fmt.Sprintf("Use the code %s to reset your password. It expires in %d minutes.\n"+
				"If you did not ask for a reset you can ignore this email.", code, minutes)
	}
	return "Confirm your email",
		fmt.Sprintf("Welcome! Your verification code is %s. It expires in %d minutes.", code, minutes)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
