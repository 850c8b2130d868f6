package arv

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// MaxMissedDays is the longest recall period for missed doses.
const MaxMissedDays = 31

func NewAdherence(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(AdherenceForm, subject.NewResolver(p, m),
		crf.IntFields("missed_doses", "missed_days"),
		crf.Min("missed_doses", 0),
		crf.Pure(func(rec crf.Record) error {
			doses, _ := rec.Float("missed_doses")
			return crf.CheckRequired(rec, doses > 0, "missed_days")
		}),
		crf.Range("missed_days", 1, MaxMissedDays),
		crf.OtherSpecify("interruption_reason", "interruption_reason_other"),
	)
}

func NewInterimHistory(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(InterimHistoryForm, subject.NewResolver(p, m),
		crf.DateFields("cd4_date", "vl_date"),
		crf.OneOf("has_cd4", crf.YesNo),
		crf.RequiredIf(crf.Yes, "has_cd4", "cd4_date"),
		crf.RequiredIf(crf.Yes, "has_cd4", "cd4_result"),
		crf.OneOf("has_vl", crf.YesNo),
		crf.RequiredIf(crf.Yes, "has_vl", "vl_date"),
		crf.RequiredIf(crf.Yes, "has_vl", "vl_detectable"),
		crf.OneOf("vl_detectable", crf.YesNo),
		crf.RequiredIf(crf.Yes, "vl_detectable", "vl_result"),
		crf.NotAfterReportDate("cd4_date"),
		crf.NotAfterReportDate("vl_date"),
	)
}

func NewAztNvp(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(AztNvpForm, subject.NewResolver(p, m),
		crf.DateFields("date_given"),
		crf.OneOf("azt_nvp_delivery", crf.YesNo),
		crf.RequiredIf(crf.Yes, "azt_nvp_delivery", "date_given"),
		crf.RequiredIf(crf.Yes, "azt_nvp_delivery", "instructions_given"),
		crf.NotAfterReportDate("date_given"),
	)
}
