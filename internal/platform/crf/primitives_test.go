package crf

import (
	"context"
	"testing"
)

func check(t *testing.T, r Rule, rec Record) *ValidationFailed {
	t.Helper()
	err := r.Check(context.Background(), NewSubmission("test_form", rec))
	if err == nil {
		return nil
	}
	vf, ok := AsValidationFailed(err)
	if !ok {
		t.Fatalf("expected *ValidationFailed, got %T: %v", err, err)
	}
	return vf
}

func TestRequiredIf_Hospitalized(t *testing.T) {
	rule := RequiredIf(Yes, "hospitalized", "hospitalization_days")

	tests := []struct {
		name      string
		rec       Record
		wantField string
		wantKind  Kind
	}{
		{"yes with days", Record{"hospitalized": "Yes", "hospitalization_days": 3}, "", ""},
		{"yes without days", Record{"hospitalized": "Yes", "hospitalization_days": nil}, "hospitalization_days", FieldRequired},
		{"no without days", Record{"hospitalized": "No"}, "", ""},
		{"no with days", Record{"hospitalized": "No", "hospitalization_days": 2}, "hospitalization_days", FieldNotRequired},
		{"dwta without days", Record{"hospitalized": "DWTA"}, "", ""},
		{"not answered with days", Record{"hospitalization_days": 2}, "hospitalization_days", FieldNotRequired},
		{"unknown token", Record{"hospitalized": "maybe"}, "hospitalized", InconsistentValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vf := check(t, rule, tt.rec)
			if tt.wantField == "" {
				if vf != nil {
					t.Fatalf("expected pass, got %v", vf)
				}
				return
			}
			if vf == nil {
				t.Fatalf("expected failure on %s", tt.wantField)
			}
			if len(vf.Errors) != 1 {
				t.Fatalf("expected exactly one error, got %d", len(vf.Errors))
			}
			if vf.Errors[0].Field != tt.wantField || vf.Errors[0].Kind != tt.wantKind {
				t.Errorf("expected %s/%s, got %s/%s", tt.wantField, tt.wantKind, vf.Errors[0].Field, vf.Errors[0].Kind)
			}
		})
	}
}

func TestRequiredIf_RapidTestResult(t *testing.T) {
	v := NewValidator("rapid_test_result",
		DateFields("result_date"),
		RequiredIf(Yes, "rapid_test_done", "result_date"),
		RequiredIf(Yes, "rapid_test_done", "result"),
	)
	ctx := context.Background()

	err := v.Validate(ctx, NewSubmission("", Record{"rapid_test_done": "No", "result_date": "2024-05-01"}))
	vf, ok := AsValidationFailed(err)
	if !ok || !vf.Has("result_date") {
		t.Fatalf("expected result_date error, got %v", err)
	}

	err = v.Validate(ctx, NewSubmission("", Record{"rapid_test_done": "Yes", "result_date": "2024-05-01"}))
	vf, ok = AsValidationFailed(err)
	if !ok || !vf.Has("result") {
		t.Fatalf("expected result error, got %v", err)
	}

	if err := v.Validate(ctx, NewSubmission("", Record{"rapid_test_done": "Yes", "result_date": "2024-05-01", "result": "NEG"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Validate(ctx, NewSubmission("", Record{"rapid_test_done": "No"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotRequiredIf(t *testing.T) {
	rule := NotRequiredIf(No, "knows_lmp", "last_period_date")
	if vf := check(t, rule, Record{"knows_lmp": "No", "last_period_date": "2024-01-01"}); vf == nil || vf.Errors[0].Kind != FieldNotRequired {
		t.Fatalf("expected not required failure, got %v", vf)
	}
	if vf := check(t, rule, Record{"knows_lmp": "Yes"}); vf != nil {
		t.Fatalf("expected pass when not triggered, got %v", vf)
	}
}

func TestRequiredIfNotNone(t *testing.T) {
	rule := RequiredIfNotNone("cd4_count", "cd4_date")
	if vf := check(t, rule, Record{"cd4_count": 350}); vf == nil || !vf.Has("cd4_date") || vf.Errors[0].Kind != FieldRequired {
		t.Fatalf("expected cd4_date required, got %v", vf)
	}
	if vf := check(t, rule, Record{"cd4_date": "2024-01-01"}); vf == nil || vf.Errors[0].Kind != FieldNotRequired {
		t.Fatalf("expected cd4_date not required, got %v", vf)
	}
	if vf := check(t, rule, Record{"cd4_count": 350, "cd4_date": "2024-01-01"}); vf != nil {
		t.Fatalf("unexpected failure: %v", vf)
	}
	if vf := check(t, rule, Record{}); vf != nil {
		t.Fatalf("unexpected failure: %v", vf)
	}
}

func TestApplicableIf(t *testing.T) {
	rule := ApplicableIf(Yes, "sero_posetive", "perinataly_infected")

	tests := []struct {
		name     string
		rec      Record
		wantKind Kind
	}{
		{"triggered with answer", Record{"sero_posetive": "Yes", "perinataly_infected": "No"}, ""},
		{"triggered with na", Record{"sero_posetive": "Yes", "perinataly_infected": "N/A"}, FieldApplicable},
		{"triggered missing", Record{"sero_posetive": "Yes"}, FieldApplicable},
		{"not triggered with na", Record{"sero_posetive": "No", "perinataly_infected": "N/A"}, ""},
		{"not triggered with answer", Record{"sero_posetive": "No", "perinataly_infected": "Yes"}, FieldNotApplicable},
		{"not triggered missing", Record{"sero_posetive": "No"}, FieldNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vf := check(t, rule, tt.rec)
			if tt.wantKind == "" {
				if vf != nil {
					t.Fatalf("expected pass, got %v", vf)
				}
				return
			}
			if vf == nil || vf.Errors[0].Kind != tt.wantKind {
				t.Fatalf("expected %s, got %v", tt.wantKind, vf)
			}
		})
	}
}

func TestOtherSpecify(t *testing.T) {
	rule := OtherSpecify("marital_status", "marital_status_other")
	if vf := check(t, rule, Record{"marital_status": "OTHER"}); vf == nil || !vf.Has("marital_status_other") {
		t.Fatalf("expected other specify required, got %v", vf)
	}
	if vf := check(t, rule, Record{"marital_status": "Single", "marital_status_other": "x"}); vf == nil || vf.Errors[0].Kind != FieldNotRequired {
		t.Fatalf("expected other specify not required, got %v", vf)
	}
	if vf := check(t, rule, Record{"marital_status": "OTHER", "marital_status_other": "widowed"}); vf != nil {
		t.Fatalf("unexpected failure: %v", vf)
	}
}

func TestOneOf(t *testing.T) {
	rule := OneOf("result", HIVResults)
	if vf := check(t, rule, Record{"result": "maybe"}); vf == nil || vf.Errors[0].Kind != InconsistentValue {
		t.Fatalf("expected invalid choice, got %v", vf)
	}
	if vf := check(t, rule, Record{"result": "IND"}); vf != nil {
		t.Fatalf("unexpected failure: %v", vf)
	}
	if vf := check(t, rule, Record{}); vf != nil {
		t.Fatalf("unexpected failure for missing value: %v", vf)
	}
}

func TestRange(t *testing.T) {
	rule := Range("labour_hrs", 0, 96)
	if vf := check(t, rule, Record{"labour_hrs": 97}); vf == nil {
		t.Fatal("expected out of range failure")
	}
	if vf := check(t, rule, Record{"labour_hrs": "12"}); vf != nil {
		t.Fatalf("unexpected failure: %v", vf)
	}
}

func TestDateFields(t *testing.T) {
	rule := DateFields("a", "b", "c")
	vf := check(t, rule, Record{"a": "2024-13-40", "b": "2024-01-02", "c": "not a date"})
	if vf == nil {
		t.Fatal("expected failure")
	}
	if len(vf.Errors) != 2 || !vf.Has("a") || !vf.Has("c") {
		t.Fatalf("expected errors on a and c, got %v", vf.Errors)
	}
}

func TestIntFields(t *testing.T) {
	rule := IntFields("prev_pregnancies", "live_children")
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"whole", 2, true},
		{"whole float", 2.0, true},
		{"whole string", "3", true},
		{"fraction", 2.5, false},
		{"fraction string", "1.5", false},
		{"beyond range", 1e19, false},
		{"text", "two", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vf := check(t, rule, Record{"prev_pregnancies": tt.value})
			if tt.ok && vf != nil {
				t.Fatalf("unexpected failure: %v", vf)
			}
			if !tt.ok && (vf == nil || !vf.Has("prev_pregnancies") || vf.Errors[0].Kind != InconsistentValue) {
				t.Fatalf("expected prev_pregnancies rejected, got %v", vf)
			}
		})
	}
	if vf := check(t, rule, Record{}); vf != nil {
		t.Fatalf("missing counts are left to Required, got %v", vf)
	}
}

func TestNotAfterReportDate(t *testing.T) {
	rule := NotAfterReportDate("result_date")
	rec := Record{"report_datetime": "2024-06-01T10:00:00Z", "result_date": "2024-06-02"}
	if vf := check(t, rule, rec); vf == nil {
		t.Fatal("expected failure for date after report date")
	}
	rec["result_date"] = "2024-06-01"
	if vf := check(t, rule, rec); vf != nil {
		t.Fatalf("same day should pass, got %v", vf)
	}
}
