// Package lookup resolves previously submitted records for the validators.
// Validators only read through Provider; the write side (Store) belongs to
// the submission layer.
package lookup

import (
	"context"
	"errors"

	"github.com/ehr/edc/internal/platform/crf"
)

// RecordType is the symbolic key of a record type, e.g. "the antenatal
// enrollment". Which table backs a key is deployment configuration.
type RecordType string

const (
	MaternalEligibility      RecordType = "maternal_eligibility"
	MaternalEligibilityLoss  RecordType = "maternal_eligibility_loss"
	MaternalConsent          RecordType = "maternal_consent"
	ConsentVersion           RecordType = "consent_version"
	MaternalLocator          RecordType = "maternal_locator"
	MaternalVisit            RecordType = "maternal_visit"
	AntenatalEnrollment      RecordType = "antenatal_enrollment"
	AntenatalVisitMembership RecordType = "antenatal_visit_membership"
	RapidTestResult          RecordType = "rapid_test_result"
	MaternalUltrasound       RecordType = "maternal_ultrasound"
	LifetimeArvHistory       RecordType = "maternal_lifetime_arv_history"
	MaternalArv              RecordType = "maternal_arv"
	MaternalRandomization    RecordType = "maternal_randomization"
	MaternalLabourDel        RecordType = "maternal_labour_del"
	MaternalOffStudy         RecordType = "maternal_offstudy"
	MaternalDeath            RecordType = "maternal_death"
	RequiredCrfException     RecordType = "required_crf_exception"
)

var (
	// ErrNotFound is returned by Get when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrMultipleFound is returned by Get when more than one record matches.
	ErrMultipleFound = errors.New("more than one record found")
	// ErrUnknownRecordType is returned for a key with no configured table.
	ErrUnknownRecordType = errors.New("unknown record type")
)

// Filter is a conjunction of field equalities.
type Filter map[string]any

// Subject is the common filter on subject_identifier.
func Subject(subjectIdentifier string) Filter {
	return Filter{crf.SubjectIdentifierField: subjectIdentifier}
}

// With returns a copy of f with one more equality.
func (f Filter) With(field string, value any) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[field] = value
	return out
}

// Matches reports whether rec satisfies every equality in f.
func (f Filter) Matches(rec crf.Record) bool {
	for k, v := range f {
		if !rec.Equal(k, v) {
			return false
		}
	}
	return true
}

// Provider is the read interface consumed by validators.
type Provider interface {
	// Latest returns the most recently stored record matching f.
	Latest(ctx context.Context, t RecordType, f Filter) (crf.Record, bool, error)
	// Get returns the single record matching f, or ErrNotFound or
	// ErrMultipleFound.
	Get(ctx context.Context, t RecordType, f Filter) (crf.Record, error)
	// Filter returns every record matching f in insertion order.
	Filter(ctx context.Context, t RecordType, f Filter) ([]crf.Record, error)
}

// Repository serves one physical record table.
type Repository interface {
	Latest(ctx context.Context, f Filter) (crf.Record, bool, error)
	Get(ctx context.Context, f Filter) (crf.Record, error)
	Filter(ctx context.Context, f Filter) ([]crf.Record, error)
}

// Store is the write side of the record store, keyed by table name.
type Store interface {
	Repository(table string) Repository
	Save(ctx context.Context, table string, rec crf.Record) (string, error)
	List(ctx context.Context, table string, f Filter, limit, offset int) ([]crf.Record, int, error)
}

// IsMissing reports whether err means the prerequisite record is absent,
// which validators treat the same whether zero or several matched.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMultipleFound)
}
