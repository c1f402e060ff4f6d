// Package form implements the conditional form evaluator: given field
// definitions and the answers collected so far, it computes which fields are
// visible and which visible answers fail validation. It is pure and safe to
// run on every field change.
package form

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// MaxFileSize is the upload ceiling for file fields (10 MiB)
const MaxFileSize = 10 * 1024 * 1024

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result holds the outcome of one evaluation pass
type Result struct {
	VisibleFields []domain.FormField `json:"visible_fields"`
	Errors        map[string]string  `json:"errors"`
}

// Evaluate runs a single flat pass over the fields in ascending order.
// A field's conditions are checked against the current answers; hidden
// fields are skipped entirely, so a hidden required field never blocks
// submission. Validation runs only over visible fields.
func Evaluate(fields []domain.FormField, answers map[string]any) Result {
	sorted := make([]domain.FormField, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	result := Result{
		VisibleFields: make([]domain.FormField, 0, len(sorted)),
		Errors:        make(map[string]string),
	}

	for _, field := range sorted {
		if !conditionsHold(field, answers) {
			continue
		}
		result.VisibleFields = append(result.VisibleFields, field)
		if msg, ok := validateField(field, answers[field.ID]); !ok {
			result.Errors[field.ID] = msg
		}
	}

	return result
}

// conditionsHold evaluates a field's visibility conditions conjunctively.
// A field with no conditions is always visible.
func conditionsHold(field domain.FormField, answers map[string]any) bool {
	for _, cond := range field.Conditions {
		value := answerString(answers[cond.FieldID])
		switch cond.Operator {
		case domain.OperatorEquals:
			if value != cond.Value {
				return false
			}
		case domain.OperatorNotEquals:
			if value == cond.Value {
				return false
			}
		case domain.OperatorContains:
			if value == "" || !strings.Contains(strings.ToLower(value), strings.ToLower(cond.Value)) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// validateField checks one visible field's answer. Returns the error message
// and false when the answer is invalid.
func validateField(field domain.FormField, value any) (string, bool) {
	if field.Required && isEmpty(value) && field.Type != domain.FieldTypeCheckbox {
		return field.Label + " is required", false
	}

	switch field.Type {
	case domain.FieldTypeEmail:
		s := answerString(value)
		if s != "" && !emailPattern.MatchString(s) {
			return field.Label + " must be a valid email address", false
		}

	case domain.FieldTypeSelect, domain.FieldTypeRadio:
		s := answerString(value)
		if s != "" && len(field.Options) > 0 && !contains(field.Options, s) {
			return field.Label + " must be one of the provided options", false
		}

	case domain.FieldTypeCheckbox:
		if field.Required {
			selections, ok := value.([]any)
			if !ok || len(selections) == 0 {
				if strs, isStrs := value.([]string); !isStrs || len(strs) == 0 {
					return field.Label + " requires at least one selection", false
				}
			}
		}

	case domain.FieldTypeFile:
		if size, ok := fileSize(value); ok && size > MaxFileSize {
			return field.Label + " file size must be less than 10MB", false
		}
	}

	return "", true
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	return strings.TrimSpace(answerString(value)) == ""
}

// answerString normalizes an answer to its string form for comparisons
func answerString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// fileSize extracts the size of a file answer, shaped as {"size": n, ...}
func fileSize(value any) (int64, bool) {
	meta, ok := value.(map[string]any)
	if !ok {
		return 0, false
	}
	switch size := meta["size"].(type) {
	case float64:
		return int64(size), true
	case int:
		return int64(size), true
	case int64:
		return size, true
	}
	return 0, false
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
