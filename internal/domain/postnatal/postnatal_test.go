package postnatal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/internal/platform/lookup/lookuptest"
)

const subj = "085-40990003-2"

var (
	consentAt = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	dob       = time.Date(1993, 8, 21, 0, 0, 0, 0, time.UTC)
	reportAt  = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
)

func newStore(positive bool) *lookuptest.Store {
	s := lookuptest.New()
	s.Consent(subj, consentAt, dob)
	if positive {
		s.Add(lookup.RapidTestResult, crf.Record{"subject_identifier": subj, "result": "POS"})
	}
	return s
}

func submission(fields crf.Record) *crf.Submission {
	rec := crf.Record{
		"report_datetime": reportAt,
		"maternal_visit":  crf.Record{"subject_identifier": subj, "report_datetime": reportAt},
	}
	for k, v := range fields {
		rec[k] = v
	}
	return crf.NewSubmission("", rec)
}

func expectValid(t *testing.T, v *crf.Validator, rec crf.Record) {
	t.Helper()
	if err := v.Validate(context.Background(), submission(rec)); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func expectError(t *testing.T, v *crf.Validator, rec crf.Record, field string, kind crf.Kind) {
	t.Helper()
	err := v.Validate(context.Background(), submission(rec))
	vf, ok := crf.AsValidationFailed(err)
	if !ok {
		t.Fatalf("expected failure on %s, got %v", field, err)
	}
	if !vf.Has(field) || vf.Errors[0].Kind != kind {
		t.Fatalf("expected %s/%s, got %+v", field, kind, vf.Errors)
	}
}

func delivery() crf.Record {
	return crf.Record{
		"delivery_datetime":       "2024-05-28T04:30:00Z",
		"labour_hrs":              12,
		"mode_delivery":           "spontaneous vaginal",
		"delivery_complications":  []any{"None"},
		"valid_regiment_duration": "Yes",
		"arv_initiation_date":     "2024-02-01",
	}
}

func TestLabourDeliveryPositive(t *testing.T) {
	s := newStore(true)
	s.Add(lookup.MaternalArv, crf.Record{"subject_identifier": subj, "arv_code": "TDF", "start_date": "2024-02-01"})
	v := NewLabourDelivery(s, subject.DefaultModels())
	expectValid(t, v, delivery())

	tests := []struct {
		name   string
		change crf.Record
		field  string
		kind   crf.Kind
	}{
		{"delivery after report", crf.Record{"delivery_datetime": "2024-06-03T04:30:00Z"}, DeliveryField, crf.InconsistentValue},
		{"labour too long", crf.Record{"labour_hrs": 97}, "labour_hrs", crf.InconsistentValue},
		{"none with others", crf.Record{"delivery_complications": []any{"None", "Sepsis"}}, "delivery_complications", crf.InconsistentValue},
		{"other complication", crf.Record{"delivery_complications": []any{"OTHER"}}, "delivery_complications_other", crf.FieldRequired},
		{"c-section reason", crf.Record{"mode_delivery": "Elective C-section"}, "csection_reason", crf.FieldRequired},
		{"initiation mismatch", crf.Record{"arv_initiation_date": "2024-02-03"}, InitiationField, crf.InconsistentValue},
		{"regimen na", crf.Record{RegimenDuration: "N/A"}, RegimenDuration, crf.InconsistentValue},
		{"no initiation", crf.Record{InitiationField: nil}, InitiationField, crf.FieldRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := delivery()
			for k, val := range tt.change {
				if val == nil {
					delete(rec, k)
					continue
				}
				rec[k] = val
			}
			expectError(t, v, rec, tt.field, tt.kind)
		})
	}
}

func TestLabourDeliveryRegimenDuration(t *testing.T) {
	s := newStore(true)
	v := NewLabourDelivery(s, subject.DefaultModels())
	delivered := time.Date(2024, 5, 28, 4, 30, 0, 0, time.UTC)

	for days := 0; days <= 40; days += 4 {
		t.Run(fmt.Sprintf("%d days", days), func(t *testing.T) {
			rec := delivery()
			rec[InitiationField] = crf.FormatDate(delivered.AddDate(0, 0, -days))
			err := v.Validate(context.Background(), submission(rec))
			if days >= 7*MinRegimenWeeks {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			vf, ok := crf.AsValidationFailed(err)
			if !ok || !vf.Has(DeliveryField) || !vf.Has(InitiationField) {
				t.Fatalf("expected both dates flagged, got %v", err)
			}
		})
	}
}

func TestLabourDeliveryNegative(t *testing.T) {
	v := NewLabourDelivery(newStore(false), subject.DefaultModels())
	rec := delivery()
	expectError(t, v, rec, RegimenDuration, crf.FieldNotApplicable)

	rec[RegimenDuration] = "N/A"
	expectError(t, v, rec, InitiationField, crf.FieldNotRequired)

	delete(rec, InitiationField)
	expectValid(t, v, rec)
}

func TestLabourDeliveryStoreDown(t *testing.T) {
	v := NewLabourDelivery(lookuptest.Failing{}, subject.DefaultModels())
	err := v.Validate(context.Background(), submission(delivery()))
	if _, ok := crf.AsValidationFailed(err); ok || err == nil {
		t.Fatalf("expected a lookup error, got %v", err)
	}
}

func TestPostpartumFollowUp(t *testing.T) {
	base := func() crf.Record {
		return crf.Record{
			"hospitalized":  "No",
			"new_diagnoses": "No",
			"has_who_dx":    "N/A",
			"who":           []any{"N/A"},
		}
	}
	neg := NewPostpartumFollowUp(newStore(false), subject.DefaultModels())
	expectValid(t, neg, base())

	rec := base()
	rec["hospitalized"] = "Yes"
	expectError(t, neg, rec, "hospitalization_reason", crf.FieldRequired)
	rec["hospitalization_reason"] = []any{"OTHER"}
	expectError(t, neg, rec, "hospitalization_reason_other", crf.FieldRequired)
	rec["hospitalization_reason_other"] = "Anaemia"
	expectError(t, neg, rec, "hospitalization_days", crf.FieldRequired)
	rec["hospitalization_days"] = 0
	expectError(t, neg, rec, "hospitalization_days", crf.InconsistentValue)
	rec["hospitalization_days"] = 2.5
	expectError(t, neg, rec, "hospitalization_days", crf.InconsistentValue)
	rec["hospitalization_days"] = 3
	expectValid(t, neg, rec)

	rec = base()
	rec["new_diagnoses"] = "Yes"
	expectError(t, neg, rec, "diagnoses", crf.FieldRequired)

	pos := NewPostpartumFollowUp(newStore(true), subject.DefaultModels())
	expectError(t, pos, base(), "has_who_dx", crf.FieldApplicable)
	rec = base()
	rec["has_who_dx"] = "Yes"
	expectError(t, pos, rec, "who", crf.FieldApplicable)
	rec["who"] = []any{"Kaposi sarcoma"}
	expectValid(t, pos, rec)
}

func TestHospitalizationDaysFollowHospitalized(t *testing.T) {
	v := NewInterimIllness(newStore(false), subject.DefaultModels())
	for _, hospitalized := range []string{"Yes", "No"} {
		for _, days := range []any{nil, 2} {
			rec := crf.Record{"hospitalized": hospitalized}
			if days != nil {
				rec["hospitalization_days"] = days
			}
			err := v.Validate(context.Background(), submission(rec))
			consistent := (hospitalized == "Yes") == (days != nil)
			if consistent != (err == nil) {
				t.Errorf("hospitalized=%s days=%v: got %v", hospitalized, days, err)
			}
		}
	}
}

func TestContraception(t *testing.T) {
	v := NewContraception(newStore(false), subject.DefaultModels())
	expectValid(t, v, crf.Record{"uses_contraceptive": "No", "contraceptive_measure": []any{"N/A"}, "pap_smear": "No"})
	expectError(t, v, crf.Record{"uses_contraceptive": "Yes", "contraceptive_measure": []any{"N/A"}, "pap_smear": "No"},
		"contraceptive_measure", crf.FieldApplicable)
	expectError(t, v, crf.Record{"uses_contraceptive": "Yes", "contraceptive_measure": []any{"OTHER"}, "pap_smear": "No"},
		"contraceptive_measure_other", crf.FieldRequired)
	expectError(t, v, crf.Record{"uses_contraceptive": "No", "contraceptive_measure": []any{"N/A"}, "pap_smear": "Yes"},
		"pap_smear_date", crf.FieldRequired)
	expectError(t, v, crf.Record{"uses_contraceptive": "No", "contraceptive_measure": []any{"N/A"}, "pap_smear": "Yes",
		"pap_smear_date": "2024-06-20", "pap_smear_result": "normal"}, "pap_smear_date", crf.InconsistentValue)
}

func TestSRHServices(t *testing.T) {
	v := NewSRHServices(newStore(false), subject.DefaultModels())
	expectValid(t, v, crf.Record{"seen_at_clinic": "Yes", "is_contraceptive_initiated": "No"})
	expectError(t, v, crf.Record{"seen_at_clinic": "No", "is_contraceptive_initiated": "No"}, "reason_unseen_clinic", crf.FieldRequired)
	expectError(t, v, crf.Record{"seen_at_clinic": "No", "reason_unseen_clinic": "OTHER", "is_contraceptive_initiated": "No"},
		"reason_unseen_clinic_other", crf.FieldRequired)
	expectError(t, v, crf.Record{"seen_at_clinic": "Yes", "is_contraceptive_initiated": "Yes"}, "contraceptive_methods", crf.FieldRequired)
	expectValid(t, v, crf.Record{"seen_at_clinic": "Yes", "is_contraceptive_initiated": "Yes", "contraceptive_methods": []any{"Condoms"}})
}
