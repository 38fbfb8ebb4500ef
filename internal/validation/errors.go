package validation

import "fmt"

// Rule names a validation rule, as reported to the form.
type Rule string

const (
	RuleRequired   Rule = "required"
	RuleUniqueName Rule = "uniqueName"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value string, rule Rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection.
func (e *ValidationErrors) Add(field, value string, rule Rule, message string) {
	*e = append(*e, NewValidationError(field, value, rule, message))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Field returns the first error reported for field, or nil.
func (e ValidationErrors) Field(field string) *ValidationError {
	for _, ve := range e {
		if ve.Field == field {
			return ve
		}
	}
	return nil
}

// Has reports whether field failed the given rule.
func (e ValidationErrors) Has(field string, rule Rule) bool {
	for _, ve := range e {
		if ve.Field == field && ve.Rule == rule {
			return true
		}
	}
	return false
}
