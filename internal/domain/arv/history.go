package arv

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewLifetimeHistory(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(LifetimeHistoryForm, r,
		crf.DateFields("haart_start_date"),
		crf.OneOf("prev_preg_haart", crf.YesNo),
		crf.RequiredIf(crf.Yes, "prev_preg_haart", "haart_start_date"),
		crf.M2MNotApplicable(crf.Yes, "prev_preg_haart", "prior_arv"),
		crf.M2MOtherSpecify("prior_arv", "prior_arv_other"),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			return haartStartDate(ctx, r, sub)
		}),
		crf.OneOf("preg_on_haart", crf.YesNoNA),
		crf.OneOf("prior_preg", crf.ARVStatuses),
		crf.Pure(priorPregnancyStatus),
	)
}

// haartStartDate must fall after the date of birth on the consent and no
// later than the report date.
func haartStartDate(ctx context.Context, r *subject.Resolver, sub *crf.Submission) error {
	start, ok := sub.Record.Date("haart_start_date")
	if !ok {
		return nil
	}
	consent, err := r.CurrentConsent(ctx, sub.SubjectIdentifier())
	if err != nil {
		return err
	}
	if dob, ok := consent.Date("dob"); ok && !start.After(dob) {
		return crf.Failf("haart_start_date", crf.InconsistentValue,
			"HAART start date must be after the date of birth %s. Got %s.", crf.FormatDate(dob), crf.FormatDate(start))
	}
	if report, ok := sub.ReportDatetime(); ok && start.After(crf.DateOf(report)) {
		return crf.Failf("haart_start_date", crf.InconsistentValue,
			"HAART start date cannot be after the report date %s. Got %s.", crf.FormatDate(report), crf.FormatDate(start))
	}
	return nil
}

// priorPregnancyStatus ties the ARV status during this pregnancy to
// whether the mother was on HAART when it began: if she was, treatment
// either continued or stopped; if not, it was restarted or never started.
func priorPregnancyStatus(rec crf.Record) error {
	status, ok := rec.Token("prior_preg")
	if !ok {
		return nil
	}
	onHaart, _ := rec.Token("preg_on_haart")
	var allowed crf.Vocabulary
	switch onHaart {
	case crf.Yes:
		allowed = crf.Vocabulary{crf.Continuous, crf.Stopped}
	case crf.No:
		allowed = crf.Vocabulary{crf.Restarted, crf.NeverStarted}
	default:
		return nil
	}
	if !allowed.Contains(status) {
		return crf.Failf("prior_preg", crf.InconsistentValue,
			"Mother was on HAART at the start of pregnancy: %s. The ARV status cannot be %s.", onHaart, status)
	}
	return nil
}
