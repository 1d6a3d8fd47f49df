package handler

import (
	"net/http"

	"roomly/internal/notifications/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, log: log}
}

func (h *NotificationHandler) ListForUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("id")
	if caller := middleware.UserIDFromContext(r.Context()); caller != "" && caller != userID {
		h.writeError(w, "ListForUser", apperrors.Forbidden("cannot read another user's notifications"))
		return
	}

	unread, err := httputil.ExtractBool(r, "unread")
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}

	items, total, err := h.service.ListForUser(r.Context(), userID, unread, limit, offset)
	if err != nil {
		h.writeError(w, "ListForUser", err)
		return
	}

	if err := httputil.WritePaginated(w, items, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListForUser", "operation", "WritePaginated", "error", err)
	}
}

// MarkRead needs an authenticated caller; the notification must belong to them.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller := middleware.UserIDFromContext(r.Context())
	if caller == "" {
		caller = r.URL.Query().Get("user_id")
	}
	if caller == "" {
		h.writeError(w, "MarkRead", apperrors.Unauthorized("user is required to mark a notification read"))
		return
	}

	if err := h.service.MarkRead(r.Context(), ps.ByName("id"), caller); err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/users/:id/notifications", h.ListForUser)
	router.POST("/api/v1/notifications/id/:id/read", h.MarkRead)
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
