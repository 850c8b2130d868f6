package antenatal

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// LMP window bounds, in weeks before the report date.
const (
	LMPEarliestWeeks = 37
	LMPLatestWeeks   = 16
)

func NewEnrollment(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(EnrollmentForm, subject.NewResolver(p, m),
		crf.DateFields("last_period_date", "rapid_test_date", "week32_test_date"),
		crf.OneOf("knows_lmp", crf.YesNo),
		crf.RequiredIf(crf.Yes, "knows_lmp", "last_period_date"),
		LMPWindow(),
		crf.RequiredIf(crf.Yes, "rapid_test_done", "rapid_test_date"),
		crf.RequiredIf(crf.Yes, "rapid_test_done", "rapid_test_result"),
		crf.OneOf("rapid_test_result", crf.HIVResults),
		crf.RequiredIf(crf.Yes, "week32_test", "week32_test_date"),
		crf.RequiredIf(crf.Yes, "week32_test", "week32_result"),
		crf.OneOf("week32_result", crf.HIVResults),
		crf.OneOf("current_hiv_status", crf.HIVResults),
		crf.OneOf("enrollment_hiv_status", crf.HIVResults),
		crf.ApplicableIf(crf.Pos, "current_hiv_status", "evidence_hiv_status"),
		crf.Pure(func(rec crf.Record) error {
			return crf.CheckApplicable(rec, enrollmentPositive(rec), "will_get_arvs")
		}),
		crf.NotAfterReportDate("rapid_test_date"),
		crf.NotAfterReportDate("week32_test_date"),
	)
}

// LMPWindow accepts a last period date in (report - 37w, report - 16w].
func LMPWindow() crf.Rule {
	return crf.RuleFuncOf(func(sub *crf.Submission) error {
		lmp, ok := sub.Record.Date("last_period_date")
		if !ok {
			return nil
		}
		report, ok := sub.ReportDatetime()
		if !ok {
			return nil
		}
		report = crf.DateOf(report)
		earliest := report.Add(-crf.Weeks(LMPEarliestWeeks))
		latest := report.Add(-crf.Weeks(LMPLatestWeeks))
		if !lmp.After(earliest) || lmp.After(latest) {
			return crf.Failf("last_period_date", crf.InconsistentValue,
				"Last period date must fall between %d and %d weeks before the report date. Expected after %s and on or before %s. Got %s.",
				LMPLatestWeeks, LMPEarliestWeeks, crf.FormatDate(earliest), crf.FormatDate(latest), crf.FormatDate(lmp))
		}
		return nil
	})
}

// enrollmentPositive is the HIV status recorded on the enrollment itself.
func enrollmentPositive(rec crf.Record) bool {
	for _, f := range []string{"enrollment_hiv_status", "current_hiv_status", "week32_result", "rapid_test_result"} {
		if rec.Equal(f, crf.Pos) {
			return true
		}
	}
	return false
}

func NewVisitMembership(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(VisitMembershipForm, r,
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			enrollment, err := r.LatestPrerequisite(ctx, m.AntenatalEnrollment,
				lookup.Subject(sub.SubjectIdentifier()), "the antenatal enrollment form")
			if err != nil {
				return err
			}
			if !enrollment.Equal("is_eligible", crf.Yes) {
				return crf.Failf(crf.WholeRecord, crf.SubjectIneligible,
					"Participant is not eligible at antenatal enrollment and cannot be added to the antenatal visit schedule.")
			}
			return nil
		}),
	)
}
