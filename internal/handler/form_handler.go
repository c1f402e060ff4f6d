package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// FormHandler handles form evaluation HTTP requests
type FormHandler struct {
	formService service.FormService
}

// NewFormHandler creates a new form handler
func NewFormHandler(formService service.FormService) *FormHandler {
	return &FormHandler{
		formService: formService,
	}
}

// Evaluate handles POST /forms/evaluate
func (h *FormHandler) Evaluate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.form.evaluate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.EvaluateFormRequest
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

	span.SetAttributes(attribute.Int("field_count", len(req.Fields)))

	result, err := h.formService.Evaluate(ctx, dto.FormFieldsToDomain(req.Fields), req.Answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
