package arv

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Inline row fields.
const (
	PregnancyItemsField  = "maternal_arv"
	PostpartumItemsField = "maternal_arv_post_med"
)

func NewPregnancy(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(PregnancyForm, r,
		crf.OneOf("took_arv", crf.YesNo),
		crf.Pure(func(rec crf.Record) error {
			return itemsRequired(rec, rec.Equal("took_arv", crf.Yes), PregnancyItemsField)
		}),
		crf.RuleFuncOf(func(sub *crf.Submission) error {
			return checkItems(sub, PregnancyItemsField)
		}),
		crf.OneOf("is_interrupt", crf.YesNo),
		crf.ApplicableIf(crf.Yes, "is_interrupt", "interrupt"),
		crf.OtherSpecify("interrupt", "interrupt_other"),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			return startsAfterHaart(ctx, r, sub)
		}),
	)
}

func itemsRequired(rec crf.Record, required bool, field string) error {
	n := len(rec.Records(field))
	switch {
	case required && n == 0:
		return crf.Failf(field, crf.FieldRequired, "At least one ARV must be entered.")
	case !required && n > 0:
		return crf.Failf(field, crf.FieldNotRequired, "No ARVs should be entered.")
	}
	return nil
}

// checkItems validates the inline ARV rows together: each code appears
// once, no row starts after the report date, and no row stops before it
// starts.
func checkItems(sub *crf.Submission, field string) error {
	report, hasReport := sub.ReportDatetime()
	seen := make(map[string]bool)
	var errs crf.Errors
	for i, item := range sub.Record.Records(field) {
		row := i + 1
		if code, ok := item.String(ArvCodeField); ok {
			if seen[code] {
				errs.Add(field, crf.InconsistentValue, "Row %d: %s is entered more than once.", row, code)
			}
			seen[code] = true
		}
		start, ok := item.Date(StartDateField)
		if !ok {
			if item.Present(StartDateField) {
				errs.Add(field, crf.InconsistentValue, "Row %d: enter a valid start date.", row)
			}
			continue
		}
		if hasReport && start.After(crf.DateOf(report)) {
			errs.Add(field, crf.InconsistentValue, "Row %d: start date %s cannot be after the report date %s.",
				row, crf.FormatDate(start), crf.FormatDate(report))
		}
		if stop, ok := item.Date(StopDateField); ok && stop.Before(start) {
			errs.Add(field, crf.InconsistentValue, "Row %d: stop date %s cannot be before the start date %s.",
				row, crf.FormatDate(stop), crf.FormatDate(start))
		}
	}
	return errs.Err()
}

// startsAfterHaart rejects a row starting before the HAART start date on
// the lifetime ARV history.
func startsAfterHaart(ctx context.Context, r *subject.Resolver, sub *crf.Submission) error {
	items := sub.Record.Records(PregnancyItemsField)
	if len(items) == 0 {
		return nil
	}
	history, ok, err := r.Provider().Latest(ctx, r.Models().LifetimeArvHistory, lookup.Subject(sub.SubjectIdentifier()))
	if err != nil || !ok {
		return err
	}
	haart, ok := history.Date("haart_start_date")
	if !ok {
		return nil
	}
	for i, item := range items {
		if start, ok := item.Date(StartDateField); ok && start.Before(haart) {
			return crf.Failf(PregnancyItemsField, crf.InconsistentValue,
				"Row %d: start date %s cannot be before the HAART start date %s in the lifetime ARV history.",
				i+1, crf.FormatDate(start), crf.FormatDate(haart))
		}
	}
	return nil
}

func NewPostpartum(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(PostpartumForm, subject.NewResolver(p, m),
		crf.OneOf("on_arv_since", crf.YesNo),
		crf.ApplicableIf(crf.Yes, "on_arv_since", "on_arv_reason"),
		crf.OtherSpecify("on_arv_reason", "on_arv_reason_other"),
		crf.OneOf("arv_status", append(crf.Vocabulary{crf.NotApplicable}, crf.ARVStatuses...)),
		crf.Pure(postpartumStatus),
		crf.RuleFuncOf(func(sub *crf.Submission) error {
			return checkItems(sub, PostpartumItemsField)
		}),
	)
}

// postpartumStatus: a mother who never started has no rows, and a mother
// who stopped has a stop date on every row.
func postpartumStatus(rec crf.Record) error {
	status, _ := rec.Token("arv_status")
	items := rec.Records(PostpartumItemsField)
	switch status {
	case crf.NeverStarted:
		return itemsRequired(rec, false, PostpartumItemsField)
	case crf.Stopped:
		if len(items) == 0 {
			return crf.Failf(PostpartumItemsField, crf.FieldRequired, "ARVs were stopped. Please enter the ARVs and their stop dates.")
		}
		for i, item := range items {
			if !item.Present(StopDateField) {
				return crf.Failf(PostpartumItemsField, crf.FieldRequired,
					"ARVs were stopped. Row %d requires a stop date.", i+1)
			}
		}
	}
	return nil
}
