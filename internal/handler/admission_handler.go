package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/pkg/middleware"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// AdmissionHandler handles capacity, join, and waitlist HTTP requests
type AdmissionHandler struct {
	admissionService service.AdmissionService
}

// NewAdmissionHandler creates a new admission handler
func NewAdmissionHandler(admissionService service.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{
		admissionService: admissionService,
	}
}

// GetCapacity handles GET /events/:event_id/capacity
func (h *AdmissionHandler) GetCapacity(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.capacity")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.admissionService.Capacity(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Join handles POST /events/:event_id/join
func (h *AdmissionHandler) Join(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.join")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")

	var req dto.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	registrant := h.resolveRegistrant(c, req.Registrant)
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("desired_status", req.DesiredStatus),
	)

	result, err := h.admissionService.RequestJoin(ctx, eventID, registrant, domain.RSVPStatus(req.DesiredStatus), req.Answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	status := http.StatusOK
	if !result.Granted {
		// A queued join created a waitlist entry
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// Cancel handles POST /events/:event_id/cancel
func (h *AdmissionHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")

	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	registrant := h.resolveRegistrant(c, req.Registrant)
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.admissionService.CancelAttendance(ctx, eventID, registrant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// ListWaitlist handles GET /events/:event_id/waitlist
func (h *AdmissionHandler) ListWaitlist(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.list_waitlist")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.admissionService.ListWaitlist(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetPosition handles GET /events/:event_id/waitlist/position
func (h *AdmissionHandler) GetPosition(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.position")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	registrant := h.resolveRegistrant(c, dto.RegistrantPayload{
		UserID:     c.Query("user_id"),
		GuestName:  c.Query("guest_name"),
		GuestEmail: c.Query("guest_email"),
	})
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.admissionService.Position(ctx, eventID, registrant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Promote handles POST /events/:event_id/waitlist/promote
func (h *AdmissionHandler) Promote(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.promote")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.admissionService.PromoteNext(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	if result == nil {
		// No free seat or nothing waiting
		c.JSON(http.StatusOK, gin.H{"promoted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoted": true, "entry": result})
}

// Convert handles POST /waitlist/:entry_id/convert
func (h *AdmissionHandler) Convert(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.convert")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	entryID := c.Param("entry_id")

	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("desired_status", req.DesiredStatus),
	)

	result, err := h.admissionService.Convert(ctx, entryID, domain.RSVPStatus(req.DesiredStatus))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Remove handles DELETE /waitlist/:entry_id
func (h *AdmissionHandler) Remove(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.remove")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	entryID := c.Param("entry_id")
	span.SetAttributes(attribute.String("entry_id", entryID))

	if err := h.admissionService.RemoveFromWaitlist(ctx, entryID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.RemoveResponse{
		Success: true,
		Message: "Removed from waitlist",
	})
}

// SetStatus handles PATCH /waitlist/:entry_id/status
func (h *AdmissionHandler) SetStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admission.set_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	entryID := c.Param("entry_id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("status", req.Status),
	)

	result, err := h.admissionService.SetEntryStatus(ctx, entryID, domain.WaitlistStatus(req.Status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// resolveRegistrant fills the registrant from the authenticated user when the
// payload names nobody
func (h *AdmissionHandler) resolveRegistrant(c *gin.Context, payload dto.RegistrantPayload) domain.Registrant {
	registrant := payload.ToDomain()
	if registrant.UserID == "" && registrant.GuestName == "" && registrant.GuestEmail == "" {
		if userID, ok := middleware.GetUserID(c); ok {
			registrant.UserID = userID
		}
	}
	return registrant
}

// handleError converts domain errors to HTTP responses
func (h *AdmissionHandler) handleError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"code":   "VALIDATION_FAILED",
			"fields": validationErr.Fields,
		})
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ENTRY_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ATTENDEE_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrAtCapacity):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "AT_CAPACITY",
		})
	case errors.Is(err, domain.ErrWaitlistDisabled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "WAITLIST_DISABLED",
		})
	case errors.Is(err, domain.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "DUPLICATE_ENTRY",
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_TRANSITION",
		})
	case errors.Is(err, domain.ErrEntryNotLive):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ENTRY_NOT_LIVE",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
