package crf

import (
	"context"
	"fmt"
	"time"
)

// DateFields rejects provided values in fields that cannot be read as a
// date or datetime. Validators list it first so later rules can treat an
// unreadable date the same as a missing one.
func DateFields(fields ...string) Rule {
	return Pure(func(rec Record) error {
		var errs Errors
		for _, f := range fields {
			if rec.Present(f) {
				if _, ok := rec.Time(f); !ok {
					errs.Add(f, InconsistentValue, "Enter a valid date.")
				}
			}
		}
		return errs.Err()
	})
}

// NumberFields rejects provided values in fields that are not numeric.
func NumberFields(fields ...string) Rule {
	return Pure(func(rec Record) error {
		var errs Errors
		for _, f := range fields {
			if rec.Present(f) {
				if _, ok := rec.Float(f); !ok {
					errs.Add(f, InconsistentValue, "Enter a number.")
				}
			}
		}
		return errs.Err()
	})
}

// IntFields rejects provided values in fields that are not whole numbers
// within MaxWhole. Counts must be listed here so that arithmetic rules never
// read a fractional count as absent.
func IntFields(fields ...string) Rule {
	return Pure(func(rec Record) error {
		var errs Errors
		for _, f := range fields {
			if rec.Present(f) {
				if _, ok := rec.Int(f); !ok {
					errs.Add(f, InconsistentValue, "Enter a whole number.")
				}
			}
		}
		return errs.Err()
	})
}

// Range rejects a provided number outside [min, max].
func Range(field string, min, max float64) Rule {
	return Pure(func(rec Record) error {
		v, ok := rec.Float(field)
		if !ok {
			return nil
		}
		if v < min || v > max {
			return Failf(field, InconsistentValue, "Expected a value between %s and %s. Got %s.",
				fmtNum(min), fmtNum(max), fmtNum(v))
		}
		return nil
	})
}

// Min rejects a provided number below min.
func Min(field string, min float64) Rule {
	return Pure(func(rec Record) error {
		v, ok := rec.Float(field)
		if ok && v < min {
			return Failf(field, InconsistentValue, "Ensure this value is greater than or equal to %s.", fmtNum(min))
		}
		return nil
	})
}

// NotAfterReportDate rejects a date in field later than the report
// datetime's calendar day.
func NotAfterReportDate(field string) Rule {
	return RuleFuncOf(func(sub *Submission) error {
		d, ok := sub.Record.Date(field)
		if !ok {
			return nil
		}
		report, ok := sub.ReportDatetime()
		if !ok {
			return nil
		}
		if d.After(DateOf(report)) {
			return Failf(field, InconsistentValue, "Date cannot be after the report date %s. Got %s.",
				FormatDate(report), FormatDate(d))
		}
		return nil
	})
}

// NotBefore rejects a date in field earlier than the date in other.
func NotBefore(field, other string) Rule {
	return Pure(func(rec Record) error {
		a, ok := rec.Time(field)
		if !ok {
			return nil
		}
		b, ok := rec.Time(other)
		if !ok {
			return nil
		}
		if a.Before(b) {
			return Failf(field, InconsistentValue, "Cannot be before %s (%s). Got %s.",
				other, FormatDate(b), FormatDate(a))
		}
		return nil
	})
}

// RuleFuncOf adapts a check over the submission that performs no lookups.
func RuleFuncOf(f func(sub *Submission) error) Rule {
	return RuleFunc(func(_ context.Context, sub *Submission) error {
		return f(sub)
	})
}

// AgeInYears is the number of whole years from born to at.
func AgeInYears(born, at time.Time) int {
	born, at = DateOf(born), DateOf(at)
	years := at.Year() - born.Year()
	if at.Month() < born.Month() || (at.Month() == born.Month() && at.Day() < born.Day()) {
		years--
	}
	return years
}

func fmtNum(v float64) string {
	return fmt.Sprintf("%g", v)
}
