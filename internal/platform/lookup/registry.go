package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehr/edc/internal/platform/crf"
)

// DefaultTables maps every symbolic record type, and every form stored by
// the submission layer, to the table label used by the reference
// deployment.
func DefaultTables() map[RecordType]string {
	keys := []RecordType{
		MaternalEligibility, MaternalEligibilityLoss, MaternalConsent, ConsentVersion,
		MaternalLocator, MaternalVisit, AntenatalEnrollment, AntenatalVisitMembership,
		RapidTestResult, MaternalUltrasound, LifetimeArvHistory, MaternalArv,
		MaternalRandomization, MaternalLabourDel, MaternalOffStudy, MaternalDeath,
		RequiredCrfException,
		"maternal_obsterical_history", "maternal_medical_history",
		"maternal_clinical_measurements_one", "maternal_clinical_measurements_two",
		"maternal_demographics", "maternal_substance_use_prior_preg",
		"maternal_substance_use_during_preg", "maternal_diagnoses", "maternal_arv_preg",
		"maternal_arv_post", "maternal_arv_post_adherence", "maternal_hiv_interim_hx",
		"maternal_azt_nvp", "maternal_postpartum_fu", "maternal_interim_illness",
		"maternal_contraception", "maternal_srh_services",
	}
	tables := make(map[RecordType]string, len(keys))
	for _, k := range keys {
		tables[k] = "td_maternal." + strings.ReplaceAll(string(k), "_", "")
	}
	return tables
}

// Registry maps symbolic record types to repositories. It is built once at
// startup and read concurrently afterwards.
type Registry struct {
	repos  map[RecordType]Repository
	tables map[RecordType]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		repos:  make(map[RecordType]Repository),
		tables: make(map[RecordType]string),
	}
}

// NewRegistryFromStore registers a repository of store for every entry of
// tables.
func NewRegistryFromStore(store Store, tables map[RecordType]string) *Registry {
	r := NewRegistry()
	for t, table := range tables {
		r.Register(t, table, store.Repository(table))
	}
	return r
}

// Register binds t to repo, replacing any previous binding. table is the
// label the submission layer stores t under.
func (r *Registry) Register(t RecordType, table string, repo Repository) {
	r.repos[t] = repo
	r.tables[t] = table
}

// Table returns the table configured for t.
func (r *Registry) Table(t RecordType) (string, error) {
	table, ok := r.tables[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRecordType, t)
	}
	return table, nil
}

func (r *Registry) repo(t RecordType) (Repository, error) {
	repo, ok := r.repos[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecordType, t)
	}
	return repo, nil
}

func (r *Registry) Latest(ctx context.Context, t RecordType, f Filter) (crf.Record, bool, error) {
	repo, err := r.repo(t)
	if err != nil {
		return nil, false, err
	}
	rec, ok, err := repo.Latest(ctx, f)
	if err != nil {
		return nil, false, fmt.Errorf("latest %s: %w", t, err)
	}
	return rec, ok, nil
}

func (r *Registry) Get(ctx context.Context, t RecordType, f Filter) (crf.Record, error) {
	repo, err := r.repo(t)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Get(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t, err)
	}
	return rec, nil
}

func (r *Registry) Filter(ctx context.Context, t RecordType, f Filter) ([]crf.Record, error) {
	repo, err := r.repo(t)
	if err != nil {
		return nil, err
	}
	recs, err := repo.Filter(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", t, err)
	}
	return recs, nil
}
