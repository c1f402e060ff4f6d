package domain

// FieldType represents the input type of a custom form field
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeFile     FieldType = "file"
)

// IsValid checks if the field type is supported
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeSelect, FieldTypeRadio,
		FieldTypeCheckbox, FieldTypeTextarea, FieldTypeFile:
		return true
	}
	return false
}

// ConditionOperator represents how a visibility condition compares values
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "equals"
	OperatorNotEquals ConditionOperator = "not_equals"
	OperatorContains  ConditionOperator = "contains"
)

// FieldCondition gates a field's visibility on another field's answer.
// A field with conditions is visible only when all of them hold.
type FieldCondition struct {
	FieldID  string            `json:"field_id"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// FormField is one question on an event's registration form.
// Fields are evaluated in ascending Order; a field may depend on answers
// to earlier fields only.
type FormField struct {
	ID         string           `json:"id"`
	Type       FieldType        `json:"type"`
	Label      string           `json:"label"`
	Required   bool             `json:"required"`
	Options    []string         `json:"options,omitempty"`
	Conditions []FieldCondition `json:"conditions,omitempty"`
	Order      int              `json:"order"`
}
