package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/form"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// FormService evaluates conditional form definitions against answers
type FormService interface {
	// Evaluate resolves field visibility and validates answers for the
	// visible fields
	Evaluate(ctx context.Context, fields []domain.FormField, answers map[string]any) (*dto.EvaluateFormResponse, error)
}

type formService struct{}

// NewFormService creates a new form service
func NewFormService() FormService {
	return &formService{}
}

func (s *formService) Evaluate(ctx context.Context, fields []domain.FormField, answers map[string]any) (*dto.EvaluateFormResponse, error) {
	_, span := telemetry.StartSpan(ctx, "service.form.evaluate")
	defer span.End()

	span.SetAttributes(
		attribute.Int("field_count", len(fields)),
		attribute.Int("answer_count", len(answers)),
	)

	result := form.Evaluate(fields, answers)

	span.SetAttributes(
		attribute.Int("visible_count", len(result.VisibleFields)),
		attribute.Int("error_count", len(result.Errors)),
	)
	span.SetStatus(codes.Ok, "")

	return &dto.EvaluateFormResponse{
		VisibleFields: result.VisibleFields,
		Errors:        result.Errors,
		Valid:         len(result.Errors) == 0,
	}, nil
}
