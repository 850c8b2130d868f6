package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/internal/platform/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "development",
		Store:               config.StoreMemory,
		DefaultSite:         "gaborone",
		BodyLimit:           "1M",
		RequestTimeout:      5 * time.Second,
		ValidateConcurrency: 2,
	}
}

func testServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	tables, err := recordTables(cfg)
	if err != nil {
		t.Fatal(err)
	}
	m, err := models(cfg)
	if err != nil {
		t.Fatal(err)
	}
	st := newStack(lookup.NewMemoryStore(), tables, m, zerolog.Nop())
	return newServer(cfg, zerolog.Nop(), st, nil, metrics.New(prometheus.NewRegistry()))
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	h := testServer(t, testConfig())
	rec := serve(h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["store"] != config.StoreMemory {
		t.Errorf("unexpected health body %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on every response")
	}
}

func TestServer_ValidateRoutes(t *testing.T) {
	h := testServer(t, testConfig())

	rec := serve(h, http.MethodGet, "/api/v1/forms", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "maternal_visit") {
		t.Fatalf("expected the form catalog, got %d %s", rec.Code, rec.Body.String())
	}

	// No consent is stored, so the visit fails its prerequisite.
	visit := `{"subject_identifier":"085-40990001-6","report_datetime":"2024-06-01T10:00:00Z","reason":"scheduled"}`
	rec = serve(h, http.MethodPost, "/api/v1/crfs/maternal_visit/validate", visit)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "prerequisite_missing") {
		t.Errorf("expected a prerequisite error, got %s", rec.Body.String())
	}

	rec = serve(h, http.MethodPost, "/api/v1/crfs/not_a_form/validate", visit)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown form, got %d", rec.Code)
	}

	rec = serve(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "edc_crf_validations_total") {
		t.Errorf("expected validation metrics, got %d", rec.Code)
	}
}

func TestServer_JWTModeRequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.AuthSigningKey = "test-secret"
	h := testServer(t, cfg)

	if rec := serve(h, http.MethodGet, "/api/v1/forms", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("expected public health check, got %d", rec.Code)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimit = "64"
	h := testServer(t, cfg)
	body := `{"subject_identifier":"` + strings.Repeat("x", 100) + `"}`
	if rec := serve(h, http.MethodPost, "/api/v1/crfs/maternal_visit/validate", body); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRecordTables_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record_types.yaml")
	if err := os.WriteFile(path, []byte("record_types:\n  maternal_consent: site.consent\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tables, err := recordTables(&config.Config{RecordTypesFile: path})
	if err != nil {
		t.Fatal(err)
	}
	if tables[lookup.MaternalConsent] != "site.consent" {
		t.Errorf("expected the override, got %s", tables[lookup.MaternalConsent])
	}
	if tables[lookup.MaternalVisit] != lookup.DefaultTables()[lookup.MaternalVisit] {
		t.Error("expected untouched types to keep the default table")
	}
}

func TestModels_ConsentOrder(t *testing.T) {
	m, err := models(&config.Config{ConsentOrder: config.ConsentEarliest})
	if err != nil {
		t.Fatal(err)
	}
	if m.ConsentOrder != subject.EarliestConsent {
		t.Errorf("expected earliest consent, got %v", m.ConsentOrder)
	}
	if m, _ := models(&config.Config{}); m.ConsentOrder != subject.LatestConsent {
		t.Errorf("expected latest consent by default, got %v", m.ConsentOrder)
	}
	if _, err := models(&config.Config{ConsentOrder: "newest"}); err == nil {
		t.Error("expected an error for an unknown consent order")
	}
}

const fixtureYAML = `
records:
  consent_version:
    - subject_identifier: "085-40990001-6"
      version: "1"
      report_datetime: "2024-01-10T09:00:00Z"
  maternal_consent:
    - subject_identifier: "085-40990001-6"
      version: "1"
      consent_datetime: "2024-01-10T09:00:00Z"
      dob: "1990-03-02"
submissions:
  - form: maternal_visit
    record:
      subject_identifier: "085-40990001-6"
      report_datetime: "2024-06-01T10:00:00Z"
      reason: scheduled
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "site.yaml", fixtureYAML)
	missed := writeFile(t, dir, "missed.json", `{"form":"maternal_visit","record":{
		"subject_identifier":"085-40990001-6","report_datetime":"2024-06-02T10:00:00Z","reason":"missed"}}`)

	var out bytes.Buffer
	cmd := validateCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--fixture", fixture, "--concurrency", "2", missed})

	err := cmd.Execute()
	if !errors.Is(err, errInvalidSubmissions) {
		t.Fatalf("expected invalid submissions, got %v\n%s", err, out.String())
	}
	got := out.String()
	if !strings.Contains(got, "ok    site.yaml#1 (maternal_visit)") {
		t.Errorf("expected the fixture submission to pass, got\n%s", got)
	}
	if !strings.Contains(got, "FAIL  missed.json (maternal_visit)") || !strings.Contains(got, "reason_missed [field_required]") {
		t.Errorf("expected the missed visit to fail, got\n%s", got)
	}
}

func TestValidateCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "site.yaml", fixtureYAML)

	var out bytes.Buffer
	cmd := validateCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--fixture", fixture, "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out.String())
	}
	var results []jsonResult
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Valid {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestValidateCmd_NothingToValidate(t *testing.T) {
	cmd := validateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error without inputs")
	}
}

func TestReadSubmission_RequiresForm(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", `{"record":{}}`)
	if _, err := readSubmission(path); err == nil {
		t.Error("expected an error for a submission without form")
	}
}

func TestFormsCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := formsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"FORM", "maternal_visit", "maternal_labour_del"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %s in\n%s", want, out.String())
		}
	}
}
