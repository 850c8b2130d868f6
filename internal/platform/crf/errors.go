package crf

import (
	"errors"
	"fmt"
	"strings"
)

// WholeRecord keys messages that belong to the form as a whole rather than
// to a single field.
const WholeRecord = "__all__"

// Kind classifies a field error.
type Kind string

const (
	FieldRequired       Kind = "field_required"
	FieldNotRequired    Kind = "field_not_required"
	FieldApplicable     Kind = "field_applicable"
	FieldNotApplicable  Kind = "field_not_applicable"
	InconsistentValue   Kind = "inconsistent_value"
	PrerequisiteMissing Kind = "prerequisite_missing"
	SubjectIneligible   Kind = "subject_ineligible"
)

// FieldError is one field-keyed message.
type FieldError struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ValidationFailed is returned by a validator when a submission violates a
// rule. It always carries at least one FieldError.
type ValidationFailed struct {
	Form   string       `json:"form,omitempty"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationFailed) Error() string {
	var b strings.Builder
	if e.Form != "" {
		fmt.Fprintf(&b, "%s: ", e.Form)
	}
	b.WriteString("validation failed")
	for i, fe := range e.Errors {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", fe.Field, fe.Message)
	}
	return b.String()
}

// Map returns the field to message mapping. When a field appears more than
// once the messages are joined in order.
func (e *ValidationFailed) Map() map[string]string {
	m := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if prev, ok := m[fe.Field]; ok {
			m[fe.Field] = prev + " " + fe.Message
			continue
		}
		m[fe.Field] = fe.Message
	}
	return m
}

// Fields lists the failing field names in order, without repeats.
func (e *ValidationFailed) Fields() []string {
	seen := make(map[string]bool, len(e.Errors))
	var out []string
	for _, fe := range e.Errors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			out = append(out, fe.Field)
		}
	}
	return out
}

// Has reports whether the failure names field.
func (e *ValidationFailed) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Fail builds a failure from one or more field errors.
func Fail(first FieldError, more ...FieldError) *ValidationFailed {
	return &ValidationFailed{Errors: append([]FieldError{first}, more...)}
}

// Failf is Fail for a single formatted message.
func Failf(field string, kind Kind, format string, args ...any) *ValidationFailed {
	return Fail(FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// AsValidationFailed unwraps err into a *ValidationFailed.
func AsValidationFailed(err error) (*ValidationFailed, bool) {
	var vf *ValidationFailed
	if errors.As(err, &vf) {
		return vf, true
	}
	return nil, false
}

// Errors accumulates the messages of one check before it is reported.
// A check adds whatever it found and then returns Err; the accumulator is
// not carried across checks.
type Errors struct {
	list []FieldError
}

// Add records a message for field.
func (e *Errors) Add(field string, kind Kind, format string, args ...any) {
	e.list = append(e.list, FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Err returns the accumulated failure, or nil when nothing was recorded.
func (e *Errors) Err() error {
	if len(e.list) == 0 {
		return nil
	}
	return Fail(e.list[0], e.list[1:]...)
}
