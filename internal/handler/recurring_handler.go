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

// RecurringHandler handles recurring series HTTP requests
type RecurringHandler struct {
	recurringService service.RecurringService
}

// NewRecurringHandler creates a new recurring series handler
func NewRecurringHandler(recurringService service.RecurringService) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
	}
}

// CreateSeries handles POST /events/recurring
func (h *RecurringHandler) CreateSeries(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.recurring.create_series")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.CreateSeriesRequest
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
		attribute.String("user_id", userID),
		attribute.String("recurrence_type", req.RecurrenceType),
	)

	result, err := h.recurringService.CreateSeries(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// ListSeries handles GET /events/recurring
func (h *RecurringHandler) ListSeries(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.recurring.list_series")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	span.SetAttributes(attribute.String("user_id", userID))

	result, err := h.recurringService.ListSeries(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// DeleteSeries handles DELETE /events/recurring/:event_id
func (h *RecurringHandler) DeleteSeries(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.recurring.delete_series")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	span.SetAttributes(attribute.String("event_id", eventID))

	if err := h.recurringService.DeleteSeries(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleError converts domain errors to HTTP responses
func (h *RecurringHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_NOT_FOUND",
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
