package screening

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// MinimumAge is the youngest age at which a mother can be enrolled.
const MinimumAge = 18

func NewEligibility() *crf.Validator {
	return crf.NewValidator(EligibilityForm,
		crf.DateFields(crf.ReportDatetimeField),
		crf.Required("age_in_years"),
		crf.IntFields("age_in_years"),
		crf.Range("age_in_years", 0, 120),
		crf.Required("has_omang"),
		crf.OneOf("has_omang", crf.YesNo),
		crf.OneOf("currently_pregnant", crf.YesNo),
		crf.OneOf("recently_delivered", crf.YesNo),
		crf.Pure(pregnancyState),
		crf.Pure(ineligibilityReason),
	)
}

func pregnancyState(rec crf.Record) error {
	if rec.Equal("currently_pregnant", crf.Yes) && rec.Equal("recently_delivered", crf.Yes) {
		return crf.Failf("recently_delivered", crf.InconsistentValue,
			"A mother cannot be currently pregnant and have recently delivered.")
	}
	return nil
}

// ineligibilityReason requires a reason exactly when the answers make the
// mother ineligible.
func ineligibilityReason(rec crf.Record) error {
	age, _ := rec.Int("age_in_years")
	ineligible := age < MinimumAge || rec.Equal("has_omang", crf.No)
	given := rec.Present("ineligibility")
	switch {
	case ineligible && !given:
		return crf.Failf("ineligibility", crf.FieldRequired, "The mother is ineligible. Please give the reason.")
	case !ineligible && given:
		return crf.Failf("ineligibility", crf.FieldNotRequired, "The mother is eligible. Reason for ineligibility is not required.")
	}
	return nil
}

func NewEligibilityLoss(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return crf.NewValidator(EligibilityLossForm,
		crf.DateFields(crf.ReportDatetimeField),
		crf.Required("reason_ineligible"),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			screeningID, _ := sub.Record.String(subject.ScreeningIdentifierField)
			eligibility, err := r.Prerequisite(ctx, m.Eligibility,
				lookup.Filter{subject.ScreeningIdentifierField: screeningID}, "the maternal eligibility form")
			if err != nil {
				return err
			}
			report, ok := sub.Record.Date(crf.ReportDatetimeField)
			screened, ok2 := eligibility.Date(crf.ReportDatetimeField)
			if ok && ok2 && report.Before(screened) {
				return crf.Failf(crf.ReportDatetimeField, crf.InconsistentValue,
					"Report date cannot be before the eligibility report date %s.", crf.FormatDate(screened))
			}
			return nil
		}),
	)
}
