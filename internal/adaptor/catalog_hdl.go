package adaptor

import (
	"errors"
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type CatalogHandler struct {
	service         usecase.CatalogService
	reviews         usecase.ReviewService
	recommendations usecase.RecommendationService
	log             *zap.Logger
}

func NewCatalogHandler(service usecase.CatalogService, reviews usecase.ReviewService, recommendations usecase.RecommendationService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service:         service,
		reviews:         reviews,
		recommendations: recommendations,
		log:             log.With(zap.String("handler", "catalog")),
	}
}

// ListServices handles GET /api/v1/services
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	filter := request.ServiceFilter{
		Category:         optionalQuery(r, "category"),
		PaginatedRequest: pageFrom(r),
	}
	if !validQuery(w, filter) {
		return
	}

	services, err := h.service.ListServices(r.Context(), filter)
	if err != nil {
		handleServiceError(w, h.log, err, "list services")
		return
	}
	utils.ResponseSuccess(w, "success", services)
}

// GetService handles GET /api/v1/services/{id}
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	svc, err := h.service.GetService(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get service")
		return
	}
	utils.ResponseSuccess(w, "success", svc)
}

// ServiceReviews handles GET /api/v1/services/{id}/reviews
func (h *CatalogHandler) ServiceReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListByService(r.Context(), id, pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list service reviews")
		return
	}
	utils.ResponseSuccess(w, "success", reviews)
}

// ReviewStats handles GET /api/v1/services/{id}/review-stats
func (h *CatalogHandler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.reviews.Stats(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "review stats")
		return
	}
	utils.ResponseSuccess(w, "success", stats)
}

// Recommendations handles GET /api/v1/services/{id}/recommendations
func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	recs, err := h.recommendations.ForService(r.Context(), id, utils.ParseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		handleServiceError(w, h.log, err, "recommend for service")
		return
	}
	utils.ResponseSuccess(w, "success", recs)
}

// ==================== ADMIN METHODS ====================

// CreateService handles POST /api/v1/admin/services (admin only)
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req request.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.service.CreateService(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create service")
		return
	}
	utils.ResponseCreated(w, "Service created", svc)
}

// UpdateService handles PUT /api/v1/admin/services/{id} (admin only)
func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.service.UpdateService(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update service")
		return
	}
	utils.ResponseSuccess(w, "Service updated", svc)
}

// DeleteService handles DELETE /api/v1/admin/services/{id} (admin only)
func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteService(r.Context(), id); err != nil {
		handleServiceError(w, h.log, err, "delete service")
		return
	}
	utils.ResponseSuccess(w, "Service deleted", nil)
}

// UploadImage handles POST /api/v1/admin/services/{id}/image (multipart, field "image")
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(usecase.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ResponseBadRequest(w, "Image too large", map[string]string{"image": "Must be at most 5MB"})
			return
		}
		utils.ResponseBadRequest(w, "Invalid multipart form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.ResponseBadRequest(w, "Validation failed", map[string]string{"image": "This field is required"})
		return
	}
	defer file.Close()

	svc, err := h.service.UploadImage(r.Context(), id, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		handleServiceError(w, h.log, err, "upload service image")
		return
	}
	utils.ResponseSuccess(w, "Image uploaded", svc)
}
