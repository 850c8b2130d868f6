package crf

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestRecord_NotProvided(t *testing.T) {
	rec := Record{"a": nil, "b": "  ", "c": []any{}, "d": "x"}
	for _, f := range []string{"a", "b", "c", "missing"} {
		if rec.Present(f) {
			t.Errorf("expected %s to be not provided", f)
		}
	}
	if !rec.Present("d") {
		t.Error("expected d to be provided")
	}
	var nilRec Record
	if nilRec.Present("a") {
		t.Error("nil record has no fields")
	}
}

func TestRecord_Numbers(t *testing.T) {
	rec := Record{"f": 3.0, "s": "12", "frac": 2.5, "bad": "twelve"}
	if v, ok := rec.Int("f"); !ok || v != 3 {
		t.Errorf("expected 3, got %d %v", v, ok)
	}
	if v, ok := rec.Int("s"); !ok || v != 12 {
		t.Errorf("expected 12, got %d %v", v, ok)
	}
	if _, ok := rec.Int("frac"); ok {
		t.Error("fractional value is not a whole number")
	}
	huge := Record{"n": 1e19, "neg": -1e19}
	if v, ok := huge.Int("n"); ok {
		t.Errorf("expected 1e19 to be rejected, got %d", v)
	}
	if v, ok := huge.Int("neg"); ok {
		t.Errorf("expected -1e19 to be rejected, got %d", v)
	}
	if _, ok := rec.Float("bad"); ok {
		t.Error("expected non-numeric string to be rejected")
	}
}

func TestRecord_Time(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{"2024-06-01", "2024-06-01T00:00:00Z", want} {
		got, ok := Record{"d": v}.Time("d")
		if !ok || !got.Equal(want) {
			t.Errorf("parse %v: got %v %v", v, got, ok)
		}
	}
	d, ok := Record{"d": "2024-06-01T23:10:00Z"}.Date("d")
	if !ok || !d.Equal(want) {
		t.Errorf("expected date truncation, got %v", d)
	}
}

func TestRecord_Strings(t *testing.T) {
	rec := Record{
		"who": []any{
			map[string]any{"short_name": "OTHER", "name": "Other"},
			"N/A",
			map[string]any{"name": "pneumonia"},
		},
	}
	want := []string{"OTHER", "N/A", "pneumonia"}
	if got := rec.Strings("who"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRecord_Equal(t *testing.T) {
	rec := Record{"version": 2.0, "status": "Yes", "when": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if !rec.Equal("version", "2") {
		t.Error("expected numeric and string forms to match")
	}
	if !rec.Equal("status", Yes) {
		t.Error("expected token match")
	}
	if !rec.Equal("when", "2024-01-01") {
		t.Error("expected time match")
	}
	if rec.Equal("missing", "x") {
		t.Error("missing field equals nothing")
	}
}

func TestAgeInYears(t *testing.T) {
	dob := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2024, 6, 14, 23, 0, 0, 0, time.UTC), 23},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 24},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 24},
	}
	for _, tt := range tests {
		if got := AgeInYears(dob, tt.at); got != tt.want {
			t.Errorf("AgeInYears(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestM2M(t *testing.T) {
	ctx := context.Background()
	na := M2MNotApplicable(Yes, "has_who_dx", "who")

	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"applicable with items", Record{"has_who_dx": "Yes", "who": []any{"pneumonia"}}, false},
		{"applicable empty", Record{"has_who_dx": "Yes"}, true},
		{"applicable with na", Record{"has_who_dx": "Yes", "who": []any{"N/A"}}, true},
		{"not applicable na only", Record{"has_who_dx": "No", "who": []any{"N/A"}}, false},
		{"not applicable na plus item", Record{"has_who_dx": "No", "who": []any{"N/A", "pneumonia"}}, true},
		{"not applicable empty", Record{"has_who_dx": "No"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := na.Check(ctx, NewSubmission("", tt.rec))
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}

	req := M2MRequired(Yes, "hospitalized", "hospitalization_reason")
	if err := req.Check(ctx, NewSubmission("", Record{"hospitalized": "Yes"})); err == nil {
		t.Error("expected required m2m")
	}
	if err := req.Check(ctx, NewSubmission("", Record{"hospitalized": "No", "hospitalization_reason": []any{"x"}})); err == nil {
		t.Error("expected m2m not required")
	}

	other := M2MOtherSpecify("prior_arv", "prior_arv_other")
	if err := other.Check(ctx, NewSubmission("", Record{"prior_arv": []any{"OTHER"}})); err == nil {
		t.Error("expected other specify for m2m")
	}
	if err := other.Check(ctx, NewSubmission("", Record{"prior_arv": []any{"AZT"}, "prior_arv_other": "x"})); err == nil {
		t.Error("expected other specify not required")
	}

	single := M2MSingleSelection("diagnoses", "None")
	if err := single.Check(ctx, NewSubmission("", Record{"diagnoses": []any{"None", "Anaemia"}})); err == nil {
		t.Error("expected exclusive selection failure")
	}
}
