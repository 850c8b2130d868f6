package postnatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewPostpartumFollowUp(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(PostpartumFollowUp, r,
		crf.OneOf("hospitalized", crf.YesNo),
		crf.M2MRequired(crf.Yes, "hospitalized", "hospitalization_reason"),
		crf.M2MOtherSpecify("hospitalization_reason", "hospitalization_reason_other"),
		crf.RequiredIf(crf.Yes, "hospitalized", "hospitalization_days"),
		crf.IntFields("hospitalization_days"),
		crf.Min("hospitalization_days", 1),
		crf.OneOf("new_diagnoses", crf.YesNo),
		crf.M2MRequired(crf.Yes, "new_diagnoses", "diagnoses"),
		crf.M2MOtherSpecify("diagnoses", "diagnoses_other"),
		subject.WHODiagnosis(r, "has_who_dx", "who"),
	)
}

func NewInterimIllness(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(InterimIllnessForm, subject.NewResolver(p, m),
		crf.OneOf("hospitalized", crf.YesNo),
		crf.RequiredIf(crf.Yes, "hospitalized", "hospitalization_days"),
		crf.IntFields("hospitalization_days"),
		crf.Min("hospitalization_days", 1),
	)
}

func NewContraception(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(ContraceptionForm, subject.NewResolver(p, m),
		crf.DateFields("pap_smear_date"),
		crf.OneOf("uses_contraceptive", crf.YesNo),
		crf.M2MNotApplicable(crf.Yes, "uses_contraceptive", "contraceptive_measure"),
		crf.M2MOtherSpecify("contraceptive_measure", "contraceptive_measure_other"),
		crf.OneOf("pap_smear", crf.YesNo),
		crf.RequiredIf(crf.Yes, "pap_smear", "pap_smear_date"),
		crf.RequiredIf(crf.Yes, "pap_smear", "pap_smear_result"),
		crf.NotAfterReportDate("pap_smear_date"),
	)
}

func NewSRHServices(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(SRHServicesForm, subject.NewResolver(p, m),
		crf.OneOf("seen_at_clinic", crf.YesNo),
		crf.RequiredIf(crf.No, "seen_at_clinic", "reason_unseen_clinic"),
		crf.OtherSpecify("reason_unseen_clinic", "reason_unseen_clinic_other"),
		crf.OneOf("is_contraceptive_initiated", crf.YesNo),
		crf.M2MRequired(crf.Yes, "is_contraceptive_initiated", "contraceptive_methods"),
		crf.M2MOtherSpecify("contraceptive_methods", "contraceptive_methods_other"),
	)
}
