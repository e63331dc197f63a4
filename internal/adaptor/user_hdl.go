package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type UserHandler struct {
	service         usecase.UserService
	reviews         usecase.ReviewService
	notifications   usecase.NotificationService
	recommendations usecase.RecommendationService
	log             *zap.Logger
}

func NewUserHandler(
	service usecase.UserService,
	reviews usecase.ReviewService,
	notifications usecase.NotificationService,
	recommendations usecase.RecommendationService,
	log *zap.Logger,
) *UserHandler {
	return &UserHandler{
		service:         service,
		reviews:         reviews,
		notifications:   notifications,
		recommendations: recommendations,
		log:             log.With(zap.String("handler", "user")),
	}
}

// GetProfile handles GET /api/v1/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.log, err, "get profile")
		return
	}
	utils.ResponseSuccess(w, "success", user)
}

// UpdateProfile handles PUT /api/v1/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update profile")
		return
	}
	utils.ResponseSuccess(w, "Profile updated", user)
}

// MyReviews handles GET /api/v1/users/me/reviews
func (h *UserHandler) MyReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	reviews, err := h.reviews.ListMine(r.Context(), userID, pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list my reviews")
		return
	}
	utils.ResponseSuccess(w, "success", reviews)
}

// MyNotifications handles GET /api/v1/users/me/notifications
func (h *UserHandler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.notifications.ListMine(r.Context(), userID, pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list my notifications")
		return
	}
	utils.ResponseSuccess(w, "success", items)
}

// MyRecommendations handles GET /api/v1/users/me/recommendations
func (h *UserHandler) MyRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	recs, err := h.recommendations.ForUser(r.Context(), userID, utils.ParseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		handleServiceError(w, h.log, err, "recommend for user")
		return
	}
	utils.ResponseSuccess(w, "success", recs)
}
