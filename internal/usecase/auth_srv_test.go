package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/pkg/auth"
	"cleaning-booking/pkg/utils"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type authFixture struct {
	svc       *authService
	users     *MockUserRepository
	sessions  *MockSessionRepository
	otps      *MockOTPRepository
	blacklist *auth.MemoryTokenBlacklist
	mailer    *recordingMailer
}

func newAuthFixture() *authFixture {
	config := &utils.Config{
		JWT: utils.JWTConfig{
			Secret:     gofakeit.LetterN(32),
			Issuer:     "test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		OTP: utils.OTPConfig{ExpiryMinutes: 10, Length: 6, MaxAttempts: 3},
	}

	f := &authFixture{
		users:     new(MockUserRepository),
		sessions:  new(MockSessionRepository),
		otps:      new(MockOTPRepository),
		blacklist: auth.NewMemoryTokenBlacklist(),
		mailer:    newRecordingMailer(),
	}
	f.svc = &authService{
		users:     f.users,
		sessions:  f.sessions,
		otps:      f.otps,
		staff:     new(MockStaffRepository),
		tokens:    auth.NewJWTService(config.JWT),
		blacklist: f.blacklist,
		notifier:  f.mailer,
		config:    config,
		log:       zap.NewNop(),
		now:       func() time.Time { return fixedNow },
	}
	return f
}

func newCustomer(t *testing.T, password string) *entity.User {
	t.Helper()
	hashed, err := utils.HashPassword(password)
	require.NoError(t, err)
	return &entity.User{
		Base:         entity.Base{ID: uuid.New()},
		Username:     "ana_clean",
		Email:        "ana@example.com",
		PasswordHash: hashed,
		Role:         entity.RoleCustomer,
		IsActive:     true,
	}
}

func otpField(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields["otp"]
}

func TestAuthService_Register(t *testing.T) {
	req := &request.RegisterRequest{
		Username: "ana_clean",
		Email:    "  Ana@Example.com ",
		Password: "correct-horse-1",
	}

	t.Run("creates customer and sends verification code", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, nil)
		f.users.On("FindByUsername", mock.Anything, "ana_clean").Return(nil, nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
			return u.Email == "ana@example.com" &&
				u.Role == entity.RoleCustomer &&
				u.IsActive &&
				utils.CheckPasswordHash("correct-horse-1", u.PasswordHash)
		})).Return(nil)
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.otps.On("InvalidateActive", mock.Anything, mock.Anything, entity.OTPTypeEmailVerification).Return(nil)
		f.otps.On("Create", mock.Anything, mock.MatchedBy(func(o *entity.OTP) bool {
			return o.OTPType == entity.OTPTypeEmailVerification &&
				len(o.OTPCode) == 6 &&
				o.ExpiresAt.Equal(fixedNow.Add(10*time.Minute))
		})).Return(nil)

		resp, err := f.svc.Register(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, fixedNow.Add(24*time.Hour), resp.RefreshExpiresAt)

		select {
		case subject := <-f.mailer.subjects:
			assert.Equal(t, "Confirm your email", subject)
		case <-time.After(2 * time.Second):
			t.Fatal("verification email was not sent")
		}
	})

	t.Run("email taken", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(&entity.User{}, nil)

		_, err := f.svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrConflict)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lost insert race", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, nil)
		f.users.On("FindByUsername", mock.Anything, "ana_clean").Return(nil, nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

		_, err := f.svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrConflict)
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("by username", func(t *testing.T) {
		f := newAuthFixture()
		user := newCustomer(t, "correct-horse-1")
		f.users.On("FindByEmail", mock.Anything, "ana_clean").Return(nil, nil)
		f.users.On("FindByUsername", mock.Anything, "Ana_Clean").Return(user, nil)
		f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.Session) bool {
			return s.UserID == user.ID && s.IPAddress != nil && *s.IPAddress == "203.0.113.7"
		})).Return(nil)

		resp, err := f.svc.Login(context.Background(), &request.LoginRequest{
			Username:   "Ana_Clean",
			Password:   "correct-horse-1",
			ClientMeta: request.ClientMeta{IPAddress: "203.0.113.7"},
		})
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), resp.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(newCustomer(t, "correct-horse-1"), nil)

		_, err := f.svc.Login(context.Background(), &request.LoginRequest{Username: "ana@example.com", Password: "nope"})
		assert.ErrorIs(t, err, ErrUnauthorized)
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ghost").Return(nil, nil)
		f.users.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)

		_, err := f.svc.Login(context.Background(), &request.LoginRequest{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("deactivated", func(t *testing.T) {
		f := newAuthFixture()
		user := newCustomer(t, "correct-horse-1")
		user.IsActive = false
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		_, err := f.svc.Login(context.Background(), &request.LoginRequest{Username: "ana@example.com", Password: "correct-horse-1"})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	user := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: "ana_clean", Role: entity.RoleCustomer, IsActive: true}
	old := uuid.New()
	session := &entity.Session{UserID: user.ID, Token: old, ExpiresAt: fixedNow.Add(time.Hour)}

	t.Run("rotates the session", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("FindValidSession", mock.Anything, old).Return(session, nil)
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		f.sessions.On("Revoke", mock.Anything, old).Return(nil)
		f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.Session) bool {
			return s.UserID == user.ID && s.Token != old
		})).Return(nil)

		resp, err := f.svc.Refresh(context.Background(), old.String(), request.ClientMeta{})
		require.NoError(t, err)
		assert.NotEqual(t, old.String(), resp.RefreshToken)
		f.sessions.AssertExpectations(t)
	})

	t.Run("malformed token", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.Refresh(context.Background(), "not-a-uuid", request.ClientMeta{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("revoked or expired", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("FindValidSession", mock.Anything, old).Return(nil, nil)

		_, err := f.svc.Refresh(context.Background(), old.String(), request.ClientMeta{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("concurrent refresh rotated it first", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("FindValidSession", mock.Anything, old).Return(session, nil)
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		f.sessions.On("Revoke", mock.Anything, old).Return(repository.ErrNoRowsAffected)

		_, err := f.svc.Refresh(context.Background(), old.String(), request.ClientMeta{})
		assert.ErrorIs(t, err, ErrUnauthorized)
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("user deactivated since login", func(t *testing.T) {
		f := newAuthFixture()
		inactive := *user
		inactive.IsActive = false
		f.sessions.On("FindValidSession", mock.Anything, old).Return(session, nil)
		f.users.On("FindByID", mock.Anything, user.ID).Return(&inactive, nil)

		_, err := f.svc.Refresh(context.Background(), old.String(), request.ClientMeta{})
		assert.ErrorIs(t, err, ErrUnauthorized)
		f.sessions.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Logout(t *testing.T) {
	token := uuid.New()

	t.Run("revokes and blacklists", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("Revoke", mock.Anything, token).Return(nil)

		require.NoError(t, f.svc.Logout(context.Background(), token.String(), "jti-1", fixedNow.Add(10*time.Minute)))

		listed, err := f.blacklist.IsBlacklisted(context.Background(), "jti-1")
		require.NoError(t, err)
		assert.True(t, listed)
	})

	t.Run("session already revoked still blacklists", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("Revoke", mock.Anything, token).Return(repository.ErrNoRowsAffected)

		require.NoError(t, f.svc.Logout(context.Background(), token.String(), "jti-2", fixedNow.Add(10*time.Minute)))

		listed, err := f.blacklist.IsBlacklisted(context.Background(), "jti-2")
		require.NoError(t, err)
		assert.True(t, listed)
	})

	t.Run("database error", func(t *testing.T) {
		f := newAuthFixture()
		f.sessions.On("Revoke", mock.Anything, token).Return(errors.New("connection reset"))

		err := f.svc.Logout(context.Background(), token.String(), "jti-3", fixedNow.Add(10*time.Minute))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("no cookie and expired access token", func(t *testing.T) {
		f := newAuthFixture()

		require.NoError(t, f.svc.Logout(context.Background(), "", "jti-4", fixedNow.Add(-time.Minute)))

		listed, err := f.blacklist.IsBlacklisted(context.Background(), "jti-4")
		require.NoError(t, err)
		assert.False(t, listed)
		f.sessions.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	user := &entity.User{Base: entity.Base{ID: uuid.New()}, Email: "ana@example.com", IsActive: true}
	active := func() *entity.OTP {
		return &entity.OTP{
			BaseSimple: entity.BaseSimple{ID: uuid.New()},
			UserID:     user.ID,
			Email:      user.Email,
			OTPCode:    "482913",
			OTPType:    entity.OTPTypeEmailVerification,
			ExpiresAt:  fixedNow.Add(5 * time.Minute),
		}
	}

	t.Run("correct code", func(t *testing.T) {
		f := newAuthFixture()
		otp := active()
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypeEmailVerification).Return(otp, nil)
		f.otps.On("MarkAsUsed", mock.Anything, otp.ID).Return(nil)
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
			return u.EmailVerified
		})).Return(nil)

		require.NoError(t, f.svc.VerifyEmail(context.Background(), &request.VerifyEmailRequest{Email: "Ana@Example.com", OTP: "482913"}))
		f.users.AssertExpectations(t)
	})

	t.Run("no active code", func(t *testing.T) {
		f := newAuthFixture()
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypeEmailVerification).Return(nil, nil)

		err := f.svc.VerifyEmail(context.Background(), &request.VerifyEmailRequest{Email: "ana@example.com", OTP: "482913"})
		assert.Equal(t, "Invalid or expired code", otpField(t, err))
	})

	t.Run("wrong code counts an attempt", func(t *testing.T) {
		f := newAuthFixture()
		otp := active()
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypeEmailVerification).Return(otp, nil)
		f.otps.On("RecordFailedAttempt", mock.Anything, otp.ID, 3).Return(1, nil)

		err := f.svc.VerifyEmail(context.Background(), &request.VerifyEmailRequest{Email: "ana@example.com", OTP: "000000"})
		assert.Equal(t, "Invalid or expired code", otpField(t, err))
		f.otps.AssertNotCalled(t, "MarkAsUsed", mock.Anything, mock.Anything)
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("last allowed guess burns the code", func(t *testing.T) {
		f := newAuthFixture()
		otp := active()
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypeEmailVerification).Return(otp, nil)
		f.otps.On("RecordFailedAttempt", mock.Anything, otp.ID, 3).Return(3, nil)

		err := f.svc.VerifyEmail(context.Background(), &request.VerifyEmailRequest{Email: "ana@example.com", OTP: "000000"})
		assert.Equal(t, "Too many attempts, request a new code", otpField(t, err))
	})

	t.Run("consumed concurrently", func(t *testing.T) {
		f := newAuthFixture()
		otp := active()
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypeEmailVerification).Return(otp, nil)
		f.otps.On("MarkAsUsed", mock.Anything, otp.ID).Return(repository.ErrNoRowsAffected)

		err := f.svc.VerifyEmail(context.Background(), &request.VerifyEmailRequest{Email: "ana@example.com", OTP: "482913"})
		assert.Equal(t, "Invalid or expired code", otpField(t, err))
	})
}

func TestAuthService_MaxOTPAttemptsDefault(t *testing.T) {
	f := newAuthFixture()
	f.svc.config.OTP.MaxAttempts = 0
	assert.Equal(t, 5, f.svc.maxOTPAttempts())
}

func TestAuthService_SendOTP(t *testing.T) {
	t.Run("email already verified", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(&entity.User{EmailVerified: true}, nil)

		err := f.svc.SendOTP(context.Background(), &request.SendOTPRequest{Email: "ana@example.com", Type: string(entity.OTPTypeEmailVerification)})
		assert.ErrorIs(t, err, ErrInvalidState)
		f.otps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		err := f.svc.SendOTP(context.Background(), &request.SendOTPRequest{Email: "ghost@example.com", Type: string(entity.OTPTypePasswordReset)})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("replaces previous code", func(t *testing.T) {
		f := newAuthFixture()
		user := &entity.User{Base: entity.Base{ID: uuid.New()}, Email: "ana@example.com", IsActive: true}
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
		f.otps.On("InvalidateActive", mock.Anything, user.ID, entity.OTPTypeEmailVerification).Return(nil).Once()
		f.otps.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, f.svc.SendOTP(context.Background(), &request.SendOTPRequest{Email: "ana@example.com", Type: string(entity.OTPTypeEmailVerification)}))
		assert.Equal(t, "Confirm your email", <-f.mailer.subjects)
		f.otps.AssertExpectations(t)
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	user := &entity.User{Base: entity.Base{ID: uuid.New()}, Email: "ana@example.com", IsActive: true}

	t.Run("forgot with unknown email is silent", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), &request.ForgotPasswordRequest{Email: "ghost@example.com"}))
		f.otps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("forgot sends a reset code", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
		f.otps.On("InvalidateActive", mock.Anything, user.ID, entity.OTPTypePasswordReset).Return(nil)
		f.otps.On("Create", mock.Anything, mock.MatchedBy(func(o *entity.OTP) bool {
			return o.OTPType == entity.OTPTypePasswordReset
		})).Return(nil)

		require.NoError(t, f.svc.ForgotPassword(context.Background(), &request.ForgotPasswordRequest{Email: "ana@example.com"}))
		assert.Equal(t, "Your password reset code", <-f.mailer.subjects)
	})

	t.Run("reset stores new hash and logs out everywhere", func(t *testing.T) {
		f := newAuthFixture()
		otp := &entity.OTP{
			BaseSimple: entity.BaseSimple{ID: uuid.New()},
			UserID:     user.ID,
			OTPCode:    "771204",
			OTPType:    entity.OTPTypePasswordReset,
		}
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypePasswordReset).Return(otp, nil)
		f.otps.On("MarkAsUsed", mock.Anything, otp.ID).Return(nil)
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		f.users.On("UpdatePassword", mock.Anything, user.ID, mock.MatchedBy(func(hash string) bool {
			return utils.CheckPasswordHash("brand-new-pass", hash)
		})).Return(nil)
		f.sessions.On("RevokeAllUserSessions", mock.Anything, user.ID).Return(nil)

		err := f.svc.ResetPassword(context.Background(), &request.ResetPasswordRequest{
			Email:       "ana@example.com",
			OTP:         "771204",
			NewPassword: "brand-new-pass",
		})
		require.NoError(t, err)
		f.users.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
	})

	t.Run("reset with wrong code keeps the password", func(t *testing.T) {
		f := newAuthFixture()
		otp := &entity.OTP{BaseSimple: entity.BaseSimple{ID: uuid.New()}, UserID: user.ID, OTPCode: "771204"}
		f.otps.On("FindActiveOTP", mock.Anything, "ana@example.com", entity.OTPTypePasswordReset).Return(otp, nil)
		f.otps.On("RecordFailedAttempt", mock.Anything, otp.ID, 3).Return(2, nil)

		err := f.svc.ResetPassword(context.Background(), &request.ResetPasswordRequest{
			Email:       "ana@example.com",
			OTP:         "123456",
			NewPassword: "brand-new-pass",
		})
		assert.Equal(t, "Invalid or expired code", otpField(t, err))
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
		f.sessions.AssertNotCalled(t, "RevokeAllUserSessions", mock.Anything, mock.Anything)
	})
}
