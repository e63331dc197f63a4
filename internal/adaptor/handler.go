package adaptor

import (
	"encoding/json"
	"net/http"
	"strings"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
	Review  *ReviewHandler
	Staff   *StaffHandler
	Payment *PaymentHandler
	Webhook *WebhookHandler
	Admin   *AdminHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, config.App.CookieSecure, config.JWT.RefreshTTL, log),
		User:    NewUserHandler(service.User, service.Review, service.Notification, service.Recommendation, log),
		Catalog: NewCatalogHandler(service.Catalog, service.Review, service.Recommendation, log),
		Booking: NewBookingHandler(service.Booking, service.Payment, log),
		Review:  NewReviewHandler(service.Review, log),
		Staff:   NewStaffHandler(service.Staff, service.Booking, log),
		Payment: NewPaymentHandler(service.Payment, log),
		Webhook: NewWebhookHandler(service.Webhook, log),
		Admin:   NewAdminHandler(service, log),
	}
}

// decodeJSON decodes and validates the body, writing the 400 itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

func validQuery(w http.ResponseWriter, q any) bool {
	if validationErrors := utils.ValidateStruct(q); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

func currentActor(w http.ResponseWriter, r *http.Request) (usecase.Actor, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return usecase.Actor{ID: userID, Role: entity.UserRole(role)}, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, map[string]string{name: "Must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func pageFrom(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}

func optionalQuery(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}
