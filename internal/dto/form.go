package dto

import "github.com/gatherly/rsvp-admission/internal/domain"

// FieldConditionPayload is the wire form of a visibility condition
type FieldConditionPayload struct {
	FieldID  string `json:"field_id" binding:"required"`
	Operator string `json:"operator" binding:"required"`
	Value    string `json:"value"`
}

// FormFieldPayload is the wire form of a custom form field
type FormFieldPayload struct {
	ID         string                  `json:"id" binding:"required"`
	Type       string                  `json:"type" binding:"required"`
	Label      string                  `json:"label" binding:"required"`
	Required   bool                    `json:"required"`
	Options    []string                `json:"options,omitempty"`
	Conditions []FieldConditionPayload `json:"conditions,omitempty"`
	Order      int                     `json:"order"`
}

// ToDomain converts the payload to a domain form field
func (p FormFieldPayload) ToDomain() domain.FormField {
	conditions := make([]domain.FieldCondition, len(p.Conditions))
	for i, c := range p.Conditions {
		conditions[i] = domain.FieldCondition{
			FieldID:  c.FieldID,
			Operator: domain.ConditionOperator(c.Operator),
			Value:    c.Value,
		}
	}
	return domain.FormField{
		ID:         p.ID,
		Type:       domain.FieldType(p.Type),
		Label:      p.Label,
		Required:   p.Required,
		Options:    p.Options,
		Conditions: conditions,
		Order:      p.Order,
	}
}

// FormFieldsToDomain converts a slice of payloads to domain form fields
func FormFieldsToDomain(payloads []FormFieldPayload) []domain.FormField {
	fields := make([]domain.FormField, len(payloads))
	for i, p := range payloads {
		fields[i] = p.ToDomain()
	}
	return fields
}

// EvaluateFormRequest is the body of POST /forms/evaluate
type EvaluateFormRequest struct {
	Fields  []FormFieldPayload `json:"fields" binding:"required"`
	Answers map[string]any     `json:"answers"`
}

// EvaluateFormResponse reports the visible fields and per-field errors
type EvaluateFormResponse struct {
	VisibleFields []domain.FormField `json:"visible_fields"`
	Errors        map[string]string  `json:"errors"`
	Valid         bool               `json:"valid"`
}
