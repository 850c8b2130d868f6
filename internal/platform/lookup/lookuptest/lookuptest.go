// Package lookuptest provides an in-memory lookup provider for validator
// tests.
package lookuptest

import (
	"context"
	"errors"
	"time"

	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Store is a registry over a memory store with the default tables.
type Store struct {
	*lookup.Registry
	mem    *lookup.MemoryStore
	tables map[lookup.RecordType]string
}

func New() *Store {
	mem := lookup.NewMemoryStore()
	tables := lookup.DefaultTables()
	return &Store{Registry: lookup.NewRegistryFromStore(mem, tables), mem: mem, tables: tables}
}

// Add stores rec as a record of type t. It panics on unknown types since
// that is always a broken test.
func (s *Store) Add(t lookup.RecordType, rec crf.Record) {
	table, ok := s.tables[t]
	if !ok {
		panic("lookuptest: unknown record type " + string(t))
	}
	if _, err := s.mem.Save(context.Background(), table, rec); err != nil {
		panic(err)
	}
}

// Consent stores a consent version and a consent for subject, consented at
// at and born on dob.
func (s *Store) Consent(subject string, at, dob time.Time) {
	s.Add(lookup.ConsentVersion, crf.Record{
		"subject_identifier": subject,
		"version":            "1",
		"report_datetime":    at,
	})
	s.Add(lookup.MaternalConsent, crf.Record{
		"subject_identifier": subject,
		"version":            "1",
		"consent_datetime":   at,
		"dob":                dob,
		"first_name":         "GOITSEONE",
		"last_name":          "MOLEFE",
		"initials":           "GM",
	})
}

// ErrStoreDown is returned by Failing.
var ErrStoreDown = errors.New("store unavailable")

// Failing is a provider whose every read fails.
type Failing struct{}

func (Failing) Latest(context.Context, lookup.RecordType, lookup.Filter) (crf.Record, bool, error) {
	return nil, false, ErrStoreDown
}

func (Failing) Get(context.Context, lookup.RecordType, lookup.Filter) (crf.Record, error) {
	return nil, ErrStoreDown
}

func (Failing) Filter(context.Context, lookup.RecordType, lookup.Filter) ([]crf.Record, error) {
	return nil, ErrStoreDown
}
