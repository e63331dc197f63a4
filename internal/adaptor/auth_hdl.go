package adaptor

import (
	"net/http"
	"time"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/middleware"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

const refreshCookiePath = "/api/v1/auth"

type AuthHandler struct {
	service    usecase.AuthService
	secure     bool
	refreshTTL time.Duration
	log        *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, secureCookies bool, refreshTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		secure:     secureCookies,
		refreshTTL: refreshTTL,
		log:        log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientMeta = clientMeta(r)

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "register")
		return
	}

	if err := h.setSessionCookies(w, resp); err != nil {
		handleServiceError(w, h.log, err, "register")
		return
	}
	utils.ResponseCreated(w, "Registration successful. Check your email for the verification code.", resp)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientMeta = clientMeta(r)

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "login")
		return
	}

	if err := h.setSessionCookies(w, resp); err != nil {
		handleServiceError(w, h.log, err, "login")
		return
	}
	utils.ResponseSuccess(w, "Login successful", resp)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		utils.ResponseUnauthorized(w, "Refresh token required")
		return
	}

	resp, err := h.service.Refresh(r.Context(), cookie.Value, clientMeta(r))
	if err != nil {
		handleServiceError(w, h.log, err, "refresh")
		return
	}

	if err := h.setSessionCookies(w, resp); err != nil {
		handleServiceError(w, h.log, err, "refresh")
		return
	}
	utils.ResponseSuccess(w, "Token refreshed", resp)
}

// Logout handles POST /api/v1/auth/logout (protected)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var refresh string
	if cookie, err := r.Cookie(middleware.RefreshCookieName); err == nil {
		refresh = cookie.Value
	}
	jti, expiresAt, _ := utils.GetTokenFromContext(r.Context())

	if err := h.service.Logout(r.Context(), refresh, jti, expiresAt); err != nil {
		handleServiceError(w, h.log, err, "logout")
		return
	}

	h.clearSessionCookies(w)
	utils.ResponseSuccess(w, "Logout successful", nil)
}

// CSRF handles GET /api/v1/auth/csrf and rotates the double-submit token.
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.setCSRFCookie(w)
	if err != nil {
		handleServiceError(w, h.log, err, "issue csrf token")
		return
	}
	utils.ResponseSuccess(w, "success", map[string]string{"csrf_token": token})
}

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req request.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SendOTP(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "send OTP")
		return
	}
	utils.ResponseSuccess(w, "If the email is registered, a code is on its way", nil)
}

// VerifyEmail handles POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "verify email")
		return
	}
	utils.ResponseSuccess(w, "Email verified successfully", nil)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "forgot password")
		return
	}
	utils.ResponseSuccess(w, "If the email is registered, a reset code is on its way", nil)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "reset password")
		return
	}

	h.clearSessionCookies(w)
	utils.ResponseSuccess(w, "Password updated, please log in again", nil)
}

// ==================== COOKIES ====================

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, resp *response.AuthResponse) error {
	if resp.RefreshToken == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    resp.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  resp.RefreshExpiresAt,
		MaxAge:   int(time.Until(resp.RefreshExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	_, err := h.setCSRFCookie(w)
	return err
}

// setCSRFCookie is readable by scripts so the client can echo it in X-CSRF-Token.
func (h *AuthHandler) setCSRFCookie(w http.ResponseWriter) (string, error) {
	token, err := utils.GenerateRandomHex(32)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.CSRFCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
		Secure: h.secure,
	})
}

func clientMeta(r *http.Request) request.ClientMeta {
	return request.ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: utils.ClientIP(r),
	}
}
