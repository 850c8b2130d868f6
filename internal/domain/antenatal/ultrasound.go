package antenatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Gestational age limits.
const (
	MaxGAWeeks        = 40
	MaxGADays         = 7
	MinGestationWeeks = 39
	MaxGestationWeeks = 42
)

var fetalMeasurements = []string{"bpd", "hc", "ac", "fl"}

func NewUltrasound(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(UltrasoundForm, subject.NewResolver(p, m),
		crf.DateFields("est_edd_ultrasound"),
		crf.IntFields("ga_by_ultrasound_wks", "ga_by_ultrasound_days", "number_of_gestations"),
		crf.NumberFields(fetalMeasurements...),
		crf.Required("number_of_gestations"),
		crf.Min("number_of_gestations", 1),
		crf.Range("ga_by_ultrasound_wks", 0, MaxGAWeeks),
		crf.Range("ga_by_ultrasound_days", 0, MaxGADays),
		crf.RuleFuncOf(estimatedDelivery),
		crf.Pure(singletonMeasurements),
	)
}

// estimatedDelivery checks the ultrasound EDD against the report date and
// against the gestational age: the implied total gestation must fall
// within 39 to 42 weeks.
func estimatedDelivery(sub *crf.Submission) error {
	edd, ok := sub.Record.Date("est_edd_ultrasound")
	if !ok {
		return nil
	}
	reportAt, ok := sub.ReportDatetime()
	if !ok {
		return nil
	}
	report := crf.DateOf(reportAt)

	if limit := report.Add(crf.Weeks(MaxGAWeeks)); edd.After(limit) {
		return crf.Failf("est_edd_ultrasound", crf.InconsistentValue,
			"Estimated edd cannot be more than %d weeks from the report date. Expected on or before %s. Got %s.",
			MaxGAWeeks, crf.FormatDate(limit), crf.FormatDate(edd))
	}
	if visitAt, ok := sub.VisitReportDatetime(); ok {
		if visit := crf.DateOf(visitAt); edd.Before(visit) {
			return crf.Failf("est_edd_ultrasound", crf.InconsistentValue,
				"Estimated edd cannot be before the visit report date %s. Got %s.", crf.FormatDate(visit), crf.FormatDate(edd))
		}
	}

	weeks, ok := sub.Record.Int("ga_by_ultrasound_wks")
	if !ok {
		return nil
	}
	conception := report.Add(-crf.Weeks(weeks))
	gestation := edd.Sub(conception)
	if gestation < crf.Weeks(MinGestationWeeks) || gestation > crf.Weeks(MaxGestationWeeks) {
		return crf.Failf("est_edd_ultrasound", crf.InconsistentValue,
			"Estimated edd and gestational age give a pregnancy of %d days. Expected between %d and %d weeks.",
			int(gestation.Hours()/24), MinGestationWeeks, MaxGestationWeeks)
	}
	return nil
}

// singletonMeasurements requires the fetal measurements for a single
// gestation and forbids them otherwise.
func singletonMeasurements(rec crf.Record) error {
	n, ok := rec.Int("number_of_gestations")
	if !ok {
		return nil
	}
	var errs crf.Errors
	for _, f := range fetalMeasurements {
		present := rec.Present(f)
		switch {
		case n == 1 && !present:
			errs.Add(f, crf.FieldRequired, crf.MsgRequired)
		case n != 1 && present:
			errs.Add(f, crf.FieldNotRequired, "Fetal measurements are only captured for a single gestation.")
		}
	}
	return errs.Err()
}
