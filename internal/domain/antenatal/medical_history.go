package antenatal

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewMedicalHistory(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(MedicalHistoryForm, r,
		crf.DateFields("cd4_date"),
		crf.OneOf("chronic_since", crf.YesNo),
		crf.OneOf("who_diagnosis", crf.YesNoNA),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			return whoDiagnosisForStatus(ctx, r, sub)
		}),
		crf.M2MNotApplicable(crf.Yes, "who_diagnosis", "who"),
		crf.M2MOtherSpecify("mother_chronic", "mother_chronic_other"),
		crf.M2MOtherSpecify("father_chronic", "father_chronic_other"),
		crf.OneOf("sero_posetive", crf.YesNo),
		crf.ApplicableIf(crf.Yes, "sero_posetive", "perinataly_infected"),
		crf.ApplicableIf(crf.Yes, "sero_posetive", "know_hiv_status"),
		crf.ApplicableIf(crf.Yes, "sero_posetive", "lowest_cd4_known"),
		crf.RequiredIf(crf.Yes, "lowest_cd4_known", "cd4_count"),
		crf.RequiredIfNotNone("cd4_count", "cd4_date"),
		crf.NotAfterReportDate("cd4_date"),
	)
}

// whoDiagnosisForStatus gates the WHO diagnosis question on the subject's
// HIV status. A positive mother must answer it, and YES when she has a
// chronic condition since the last visit. A negative mother must answer
// N/A.
func whoDiagnosisForStatus(ctx context.Context, r *subject.Resolver, sub *crf.Submission) error {
	pos, err := r.IsPositive(ctx, sub.SubjectIdentifier())
	if err != nil {
		return err
	}
	rec := sub.Record
	if !pos {
		if !rec.Equal("who_diagnosis", crf.NotApplicable) {
			return crf.Failf("who_diagnosis", crf.FieldNotApplicable,
				"The mother is HIV negative. WHO diagnosis should be %s.", crf.NotApplicable)
		}
		return nil
	}
	if err := crf.CheckApplicable(rec, true, "who_diagnosis"); err != nil {
		return err
	}
	if rec.Equal("chronic_since", crf.Yes) && !rec.Equal("who_diagnosis", crf.Yes) {
		return crf.Failf("who_diagnosis", crf.InconsistentValue,
			"The mother is HIV positive and has a chronic condition. WHO diagnosis should be %s.", crf.Yes)
	}
	return nil
}
