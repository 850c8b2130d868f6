package subject

import (
	"context"

	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// ExceptionPending is the open status of a required-CRF exception. An
// exception with no status is pending too.
const ExceptionPending = "pending"

// OffStudyGuard blocks a form for a subject whose off-study date is on or
// before the form's report date, unless a pending required-CRF exception
// names the form.
func OffStudyGuard(r *Resolver) crf.Rule {
	return crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
		id := sub.SubjectIdentifier()
		if id == "" {
			return nil
		}
		report, ok := sub.ReportDatetime()
		if !ok {
			return nil
		}
		offstudy, ok, err := r.p.Latest(ctx, r.m.OffStudy, lookup.Subject(id))
		if err != nil || !ok {
			return err
		}
		offDate, ok := offstudy.Date("offstudy_date")
		if !ok || offDate.After(crf.DateOf(report)) {
			return nil
		}

		exceptions, err := r.p.Filter(ctx, r.m.CrfException, lookup.Subject(id).With("form", sub.Form))
		if err != nil {
			return err
		}
		for _, e := range exceptions {
			status, _ := e.String("status")
			if status == "" || status == ExceptionPending {
				return nil
			}
		}
		return crf.Failf(crf.WholeRecord, crf.SubjectIneligible,
			"Participant was taken off study on %s. Cannot capture data for a report date of %s.",
			crf.FormatDate(offDate), crf.FormatDate(report))
	})
}

// VisitDatetimeGuard rejects a form report datetime earlier than its
// visit's report datetime.
func VisitDatetimeGuard() crf.Rule {
	return crf.RuleFuncOf(func(sub *crf.Submission) error {
		own, ok := sub.Record.Time(crf.ReportDatetimeField)
		if !ok {
			return nil
		}
		visit, ok := sub.VisitReportDatetime()
		if !ok {
			return nil
		}
		if own.Before(visit) {
			return crf.Failf(crf.ReportDatetimeField, crf.InconsistentValue,
				"Report datetime cannot be before the visit report datetime %s.", crf.FormatDate(visit))
		}
		return nil
	})
}

// ConsentDatetimeGuard rejects a report datetime earlier than the current
// consent datetime. A missing consent version or consent is reported as
// PrerequisiteMissing.
func ConsentDatetimeGuard(r *Resolver) crf.Rule {
	return crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
		id := sub.SubjectIdentifier()
		report, ok := sub.ReportDatetime()
		if id == "" || !ok {
			return nil
		}
		consented, err := r.ConsentDatetime(ctx, id)
		if err != nil {
			return err
		}
		if report.Before(consented) {
			return crf.Failf(crf.ReportDatetimeField, crf.InconsistentValue,
				"Report datetime cannot be before consent datetime %s.", consented.UTC().Format("2006-01-02 15:04"))
		}
		return nil
	})
}

// VisitGuards is the guard chain attached to every visit-scoped form, in
// the order it runs.
func VisitGuards(r *Resolver) []crf.Rule {
	return []crf.Rule{OffStudyGuard(r), VisitDatetimeGuard(), ConsentDatetimeGuard(r)}
}

// NewVisitValidator builds a validator that runs the visit guards before
// rules.
func NewVisitValidator(form string, r *Resolver, rules ...crf.Rule) *crf.Validator {
	return crf.NewValidator(form, append(VisitGuards(r), rules...)...)
}
