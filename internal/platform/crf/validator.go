package crf

import (
	"context"
	"fmt"
	"time"
)

// ReportDatetimeField and friends are the identifying keys every form
// carries, directly or through its visit.
const (
	ReportDatetimeField    = "report_datetime"
	SubjectIdentifierField = "subject_identifier"
	VisitField             = "maternal_visit"
)

// Submission is the validation context for one form submission.
type Submission struct {
	Form   string
	Record Record
	// Visit is the owning maternal visit. Nil for forms captured before
	// the subject has visits (screening, consent).
	Visit Record
}

// NewSubmission builds a submission, taking the visit from the record's
// maternal_visit reference when it is embedded.
func NewSubmission(form string, rec Record) *Submission {
	if rec == nil {
		rec = Record{}
	}
	sub := &Submission{Form: form, Record: rec}
	if visit, ok := rec.Nested(VisitField); ok {
		sub.Visit = visit
	}
	return sub
}

// SubjectIdentifier resolves the subject from the record, then the visit.
func (s *Submission) SubjectIdentifier() string {
	if id, ok := s.Record.String(SubjectIdentifierField); ok {
		return id
	}
	if id, ok := s.Visit.String(SubjectIdentifierField); ok {
		return id
	}
	return ""
}

// ReportDatetime is the form's report datetime, falling back to the
// visit's.
func (s *Submission) ReportDatetime() (time.Time, bool) {
	if t, ok := s.Record.Time(ReportDatetimeField); ok {
		return t, true
	}
	return s.Visit.Time(ReportDatetimeField)
}

// VisitReportDatetime is the owning visit's report datetime.
func (s *Submission) VisitReportDatetime() (time.Time, bool) {
	return s.Visit.Time(ReportDatetimeField)
}

// Rule is one check in a validator's ordered list. Check returns nil when
// the rule holds, a *ValidationFailed when it is violated, and any other
// error when a related record could not be read.
type Rule interface {
	Check(ctx context.Context, sub *Submission) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(ctx context.Context, sub *Submission) error

func (f RuleFunc) Check(ctx context.Context, sub *Submission) error {
	return f(ctx, sub)
}

// Pure adapts a check that only reads the submitted record.
func Pure(f func(rec Record) error) Rule {
	return RuleFunc(func(_ context.Context, sub *Submission) error {
		return f(sub.Record)
	})
}

// All runs rules in order and stops at the first violation.
func All(rules ...Rule) Rule {
	return RuleFunc(func(ctx context.Context, sub *Submission) error {
		for _, r := range rules {
			if err := r.Check(ctx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

// When runs rules only if cond holds for the submission.
func When(cond func(sub *Submission) bool, rules ...Rule) Rule {
	inner := All(rules...)
	return RuleFunc(func(ctx context.Context, sub *Submission) error {
		if !cond(sub) {
			return nil
		}
		return inner.Check(ctx, sub)
	})
}

// Validator is the per-form entry point: a fixed, ordered list of rules.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	form  string
	rules []Rule
}

// NewValidator returns a validator for form running rules in order.
func NewValidator(form string, rules ...Rule) *Validator {
	return &Validator{form: form, rules: rules}
}

// Form is the form name the validator is registered under.
func (v *Validator) Form() string {
	return v.form
}

// Validate runs the rules in order. It returns nil when the submission is
// valid, the first *ValidationFailed otherwise, or a wrapped lookup error.
func (v *Validator) Validate(ctx context.Context, sub *Submission) error {
	if sub.Form == "" {
		sub.Form = v.form
	}
	for _, r := range v.rules {
		err := r.Check(ctx, sub)
		if err == nil {
			continue
		}
		if vf, ok := AsValidationFailed(err); ok {
			if vf.Form == "" {
				vf.Form = v.form
			}
			return vf
		}
		return fmt.Errorf("validate %s: %w", v.form, err)
	}
	return nil
}
