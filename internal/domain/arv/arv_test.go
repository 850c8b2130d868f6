package arv

import (
	"context"
	"testing"
	"time"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/internal/platform/lookup/lookuptest"
)

const subj = "085-40990002-4"

var (
	consentAt = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	dob       = time.Date(1995, 5, 10, 0, 0, 0, 0, time.UTC)
	reportAt  = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
)

func newStore() *lookuptest.Store {
	s := lookuptest.New()
	s.Consent(subj, consentAt, dob)
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

type outcome struct {
	field string
	kind  crf.Kind
}

var valid = outcome{}

func check(t *testing.T, v *crf.Validator, rec crf.Record, want outcome) {
	t.Helper()
	err := v.Validate(context.Background(), submission(rec))
	if want == valid {
		if err != nil {
			t.Fatalf("expected valid, got %v", err)
		}
		return
	}
	vf, ok := crf.AsValidationFailed(err)
	if !ok {
		t.Fatalf("expected failure on %s, got %v", want.field, err)
	}
	if !vf.Has(want.field) || vf.Errors[0].Kind != want.kind {
		t.Fatalf("expected %s/%s, got %+v", want.field, want.kind, vf.Errors)
	}
}

func history() crf.Record {
	return crf.Record{
		"prev_preg_haart":  "Yes",
		"haart_start_date": "2020-02-01",
		"prior_arv":        []any{"AZT", "3TC"},
		"preg_on_haart":    "Yes",
		"prior_preg":       "CONTINUOUS",
	}
}

func TestLifetimeHistory(t *testing.T) {
	v := NewLifetimeHistory(newStore(), subject.DefaultModels())
	check(t, v, history(), valid)

	tests := []struct {
		name   string
		change crf.Record
		want   outcome
	}{
		{"no haart with start date", crf.Record{"prev_preg_haart": "No", "prior_arv": []any{"N/A"}}, outcome{"haart_start_date", crf.FieldNotRequired}},
		{"haart with na", crf.Record{"prior_arv": []any{"N/A"}}, outcome{"prior_arv", crf.FieldApplicable}},
		{"other arv", crf.Record{"prior_arv": []any{"OTHER"}}, outcome{"prior_arv_other", crf.FieldRequired}},
		{"start before dob", crf.Record{"haart_start_date": "1990-01-01"}, outcome{"haart_start_date", crf.InconsistentValue}},
		{"start after report", crf.Record{"haart_start_date": "2024-07-01"}, outcome{"haart_start_date", crf.InconsistentValue}},
		{"on haart restarted", crf.Record{"prior_preg": "RESTARTED"}, outcome{"prior_preg", crf.InconsistentValue}},
		{"not on haart continuous", crf.Record{"preg_on_haart": "No", "prior_preg": "CONTINUOUS"}, outcome{"prior_preg", crf.InconsistentValue}},
		{"unknown status", crf.Record{"prior_preg": "PAUSED"}, outcome{"prior_preg", crf.InconsistentValue}},
		{"not on haart never started", crf.Record{"preg_on_haart": "No", "prior_preg": "NEVER_STARTED"}, valid},
		{"on haart stopped", crf.Record{"prior_preg": "STOPPED"}, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := history()
			for k, val := range tt.change {
				rec[k] = val
			}
			check(t, v, rec, tt.want)
		})
	}
}

func TestPregnancy(t *testing.T) {
	s := newStore()
	s.Add(lookup.LifetimeArvHistory, crf.Record{"subject_identifier": subj, "haart_start_date": "2024-01-15"})
	v := NewPregnancy(s, subject.DefaultModels())

	items := func(rows ...crf.Record) []any {
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = map[string]any(r)
		}
		return out
	}
	base := func() crf.Record {
		return crf.Record{
			"took_arv":     "Yes",
			"is_interrupt": "No",
			"interrupt":    "N/A",
			"maternal_arv": items(
				crf.Record{"arv_code": "TDF", "start_date": "2024-02-01"},
				crf.Record{"arv_code": "FTC", "start_date": "2024-02-01", "stop_date": "2024-05-01"},
			),
		}
	}
	check(t, v, base(), valid)

	rec := base()
	rec["took_arv"] = "No"
	check(t, v, rec, outcome{PregnancyItemsField, crf.FieldNotRequired})

	rec = base()
	delete(rec, PregnancyItemsField)
	check(t, v, rec, outcome{PregnancyItemsField, crf.FieldRequired})

	rec = base()
	rec[PregnancyItemsField] = items(
		crf.Record{"arv_code": "TDF", "start_date": "2024-02-01"},
		crf.Record{"arv_code": "TDF", "start_date": "2024-07-01", "stop_date": "2024-06-01"},
	)
	err := v.Validate(context.Background(), submission(rec))
	vf, ok := crf.AsValidationFailed(err)
	if !ok || len(vf.Errors) != 3 {
		t.Fatalf("expected duplicate, future start and stop-before-start together, got %v", err)
	}

	rec = base()
	rec[PregnancyItemsField] = items(crf.Record{"arv_code": "TDF", "start_date": "2024-01-02"})
	check(t, v, rec, outcome{PregnancyItemsField, crf.InconsistentValue})

	rec = base()
	rec["is_interrupt"] = "Yes"
	check(t, v, rec, outcome{"interrupt", crf.FieldApplicable})
	rec["interrupt"] = "OTHER"
	check(t, v, rec, outcome{"interrupt_other", crf.FieldRequired})
	rec["interrupt_other"] = "Stock out"
	check(t, v, rec, valid)
}

func TestPostpartum(t *testing.T) {
	v := NewPostpartum(newStore(), subject.DefaultModels())
	base := func() crf.Record {
		return crf.Record{"on_arv_since": "No", "on_arv_reason": "N/A", "arv_status": "CONTINUOUS",
			PostpartumItemsField: []any{map[string]any{"arv_code": "TDF", "start_date": "2024-02-01"}}}
	}
	check(t, v, base(), valid)

	rec := base()
	rec["on_arv_since"] = "Yes"
	check(t, v, rec, outcome{"on_arv_reason", crf.FieldApplicable})

	rec = base()
	rec["arv_status"] = "NEVER_STARTED"
	check(t, v, rec, outcome{PostpartumItemsField, crf.FieldNotRequired})

	rec = base()
	rec["arv_status"] = "STOPPED"
	check(t, v, rec, outcome{PostpartumItemsField, crf.FieldRequired})
	rec[PostpartumItemsField] = []any{map[string]any{"arv_code": "TDF", "start_date": "2024-02-01", "stop_date": "2024-05-20"}}
	check(t, v, rec, valid)
}

func TestAdherence(t *testing.T) {
	v := NewAdherence(newStore(), subject.DefaultModels())
	check(t, v, crf.Record{"missed_doses": 0}, valid)
	check(t, v, crf.Record{"missed_doses": -1}, outcome{"missed_doses", crf.InconsistentValue})
	check(t, v, crf.Record{"missed_doses": 2}, outcome{"missed_days", crf.FieldRequired})
	check(t, v, crf.Record{"missed_doses": 0, "missed_days": 3}, outcome{"missed_days", crf.FieldNotRequired})
	check(t, v, crf.Record{"missed_doses": 2, "missed_days": 32}, outcome{"missed_days", crf.InconsistentValue})
	check(t, v, crf.Record{"missed_doses": 0.5}, outcome{"missed_doses", crf.InconsistentValue})
	check(t, v, crf.Record{"missed_doses": 2, "missed_days": 2.5}, outcome{"missed_days", crf.InconsistentValue})
	check(t, v, crf.Record{"missed_doses": 2, "missed_days": 2, "interruption_reason": "OTHER"}, outcome{"interruption_reason_other", crf.FieldRequired})
}

func TestInterimHistory(t *testing.T) {
	v := NewInterimHistory(newStore(), subject.DefaultModels())
	check(t, v, crf.Record{"has_cd4": "No", "has_vl": "No"}, valid)
	check(t, v, crf.Record{"has_cd4": "Yes", "cd4_date": "2024-05-01"}, outcome{"cd4_result", crf.FieldRequired})
	check(t, v, crf.Record{"has_cd4": "No", "has_vl": "Yes", "vl_date": "2024-05-01"}, outcome{"vl_detectable", crf.FieldRequired})
	check(t, v, crf.Record{"has_cd4": "No", "has_vl": "Yes", "vl_date": "2024-05-01", "vl_detectable": "Yes"}, outcome{"vl_result", crf.FieldRequired})
	check(t, v, crf.Record{"has_cd4": "No", "has_vl": "Yes", "vl_date": "2024-05-01", "vl_detectable": "No", "vl_result": 400}, outcome{"vl_result", crf.FieldNotRequired})
	check(t, v, crf.Record{"has_cd4": "Yes", "cd4_date": "2024-06-10", "cd4_result": 500, "has_vl": "No"}, outcome{"cd4_date", crf.InconsistentValue})
}

func TestAztNvp(t *testing.T) {
	v := NewAztNvp(newStore(), subject.DefaultModels())
	check(t, v, crf.Record{"azt_nvp_delivery": "Yes", "date_given": "2024-05-30", "instructions_given": "Yes"}, valid)
	check(t, v, crf.Record{"azt_nvp_delivery": "Yes", "instructions_given": "Yes"}, outcome{"date_given", crf.FieldRequired})
	check(t, v, crf.Record{"azt_nvp_delivery": "No", "date_given": "2024-05-30"}, outcome{"date_given", crf.FieldNotRequired})
}
