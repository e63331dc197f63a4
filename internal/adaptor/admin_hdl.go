package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

// AdminHandler serves the back-office routes that are not tied to one resource handler.
type AdminHandler struct {
	users     usecase.UserService
	analytics usecase.AnalyticsService
	retries   usecase.RetryService
	log       *zap.Logger
}

func NewAdminHandler(service *usecase.Service, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		users:     service.User,
		analytics: service.Analytics,
		retries:   service.Retry,
		log:       log.With(zap.String("handler", "admin")),
	}
}

// ListUsers handles GET /api/v1/admin/users?role=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), optionalQuery(r, "role"), pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list users")
		return
	}
	utils.ResponseSuccess(w, "success", users)
}

// UpdateRole handles PATCH /api/v1/admin/users/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.UpdateRole(r.Context(), actorID, id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update role")
		return
	}
	utils.ResponseSuccess(w, "Role updated", user)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), actorID, id); err != nil {
		handleServiceError(w, h.log, err, "delete user")
		return
	}
	utils.ResponseSuccess(w, "User deleted", nil)
}

// Dashboard handles GET /api/v1/admin/analytics/dashboard?from=&to=
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	req := request.DashboardRequest{
		From: optionalQuery(r, "from"),
		To:   optionalQuery(r, "to"),
	}
	if !validQuery(w, req) {
		return
	}

	dashboard, err := h.analytics.Dashboard(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "analytics dashboard")
		return
	}
	utils.ResponseSuccess(w, "success", dashboard)
}

// Churn handles GET /api/v1/admin/analytics/churn
func (h *AdminHandler) Churn(w http.ResponseWriter, r *http.Request) {
	churn, err := h.analytics.Churn(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "churn analysis")
		return
	}
	utils.ResponseSuccess(w, "success", churn)
}

// ListRetries handles GET /api/v1/admin/retries?status=
func (h *AdminHandler) ListRetries(w http.ResponseWriter, r *http.Request) {
	req := request.RetryListRequest{
		Status:           optionalQuery(r, "status"),
		PaginatedRequest: pageFrom(r),
	}
	if !validQuery(w, req) {
		return
	}

	retries, err := h.retries.List(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list retries")
		return
	}
	utils.ResponseSuccess(w, "success", retries)
}

// RequeueRetry handles POST /api/v1/admin/retries/{id}/requeue
func (h *AdminHandler) RequeueRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	retry, err := h.retries.Requeue(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "requeue retry")
		return
	}
	utils.ResponseSuccess(w, "Retry requeued", retry)
}
