package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"roomly/internal/bookings/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/middleware"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	// An authenticated caller books on their own behalf.
	if caller := middleware.UserIDFromContext(r.Context()); caller != "" {
		if req.OrganizerID == "" {
			req.OrganizerID = caller
		} else if req.OrganizerID != caller {
			h.writeError(w, "Create", apperrors.Forbidden("organizer_id must match the authenticated user"))
			return
		}
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.UpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if caller := middleware.UserIDFromContext(r.Context()); caller != "" {
		if req.ActorID == "" {
			req.ActorID = caller
		} else if req.ActorID != caller {
			h.writeError(w, "Update", apperrors.Forbidden("actor_id must match the authenticated user"))
			return
		}
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), ps.ByName("id"), actor); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	resourceID := query.Get("resource_id")
	if resourceID == "" {
		h.writeError(w, "Search", apperrors.InvalidInput("'resource_id' query parameter is required"))
		return
	}

	startTime, endTime, err := window(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	bookings, total, err := h.service.SearchByResource(r.Context(), resourceID, startTime, endTime, limit, offset)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

// UserSchedule lists a user's bookings. Authenticated callers may only read their own.
func (h *BookingHandler) UserSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("id")
	if caller := middleware.UserIDFromContext(r.Context()); caller != "" && caller != userID {
		h.writeError(w, "UserSchedule", apperrors.Forbidden("cannot read another user's schedule"))
		return
	}

	startTime, endTime, err := window(r)
	if err != nil {
		h.writeError(w, "UserSchedule", err)
		return
	}

	bookings, err := h.service.UserSchedule(r.Context(), userID, startTime, endTime)
	if err != nil {
		h.writeError(w, "UserSchedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "UserSchedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.GET("/api/v1/bookings/search", h.Search)
	router.GET("/api/v1/users/:id/bookings", h.UserSchedule)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// window reads the optional start_time and end_time query parameters.
func window(r *http.Request) (*time.Time, *time.Time, error) {
	query := r.URL.Query()

	var startTime, endTime *time.Time
	if s := query.Get("start_time"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid start_time format, must be RFC3339")
		}
		startTime = &parsed
	}
	if s := query.Get("end_time"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid end_time format, must be RFC3339")
		}
		endTime = &parsed
	}
	return startTime, endTime, nil
}
