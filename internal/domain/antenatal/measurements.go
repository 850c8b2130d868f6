package antenatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Height limits in centimetres.
const (
	MinHeightCm = 134
	MaxHeightCm = 195
)

func NewClinicalMeasurementsOne(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(ClinicalMeasurementsOne, subject.NewResolver(p, m),
		crf.NumberFields("systolic_bp", "diastolic_bp", "height", "weight_kg"),
		BloodPressure(),
		crf.Required("height"),
		crf.Range("height", MinHeightCm, MaxHeightCm),
		crf.Required("weight_kg"),
		crf.Pure(func(rec crf.Record) error {
			if w, ok := rec.Float("weight_kg"); ok && w <= 0 {
				return crf.Failf("weight_kg", crf.InconsistentValue, "Weight must be greater than 0.")
			}
			return nil
		}),
	)
}

func NewClinicalMeasurementsTwo(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(ClinicalMeasurementsTwo, subject.NewResolver(p, m),
		crf.NumberFields("systolic_bp", "diastolic_bp"),
		BloodPressure(),
	)
}

// BloodPressure requires both readings and a systolic reading no lower
// than the diastolic one.
func BloodPressure() crf.Rule {
	return crf.Pure(func(rec crf.Record) error {
		sys, ok := rec.Float("systolic_bp")
		if !ok {
			return crf.Failf("systolic_bp", crf.FieldRequired, crf.MsgRequired)
		}
		dia, ok := rec.Float("diastolic_bp")
		if !ok {
			return crf.Failf("diastolic_bp", crf.FieldRequired, crf.MsgRequired)
		}
		if sys < dia {
			return crf.Failf("diastolic_bp", crf.InconsistentValue,
				"Systolic blood pressure cannot be lower than the diastolic blood pressure. Got %g/%g.", sys, dia)
		}
		return nil
	})
}

func NewRapidTestResult(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(RapidTestForm, subject.NewResolver(p, m),
		crf.DateFields("result_date"),
		crf.OneOf("rapid_test_done", crf.YesNo),
		crf.RequiredIf(crf.Yes, "rapid_test_done", "result_date"),
		crf.RequiredIf(crf.Yes, "rapid_test_done", "result"),
		crf.OneOf("result", crf.HIVResults),
		crf.NotAfterReportDate("result_date"),
	)
}
