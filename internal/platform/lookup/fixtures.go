package lookup

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ehr/edc/internal/platform/crf"
)

// Fixture is a YAML document holding previously stored records, keyed by
// record type, and the form submissions to validate against them.
//
//	records:
//	  maternal_consent:
//	    - subject_identifier: 085-40990001-6
//	      consent_datetime: 2024-03-01T09:00:00Z
//	submissions:
//	  - form: maternal_ultrasound
//	    record: {...}
type Fixture struct {
	Records     map[RecordType][]map[string]any `yaml:"records"`
	Submissions []FixtureSubmission             `yaml:"submissions"`
}

// FixtureSubmission is one form submission in a fixture.
type FixtureSubmission struct {
	Form   string         `yaml:"form"`
	Record map[string]any `yaml:"record"`
}

// LoadFixture decodes a fixture document.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Seed saves the fixture's records into store under the tables configured
// for their record types. Types are seeded in name order and records in
// document order, so "latest" follows the document.
func (f *Fixture) Seed(ctx context.Context, store Store, tables map[RecordType]string) (int, error) {
	types := make([]RecordType, 0, len(f.Records))
	for t := range f.Records {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	n := 0
	for _, t := range types {
		table, ok := tables[t]
		if !ok {
			return n, fmt.Errorf("%w: %s", ErrUnknownRecordType, t)
		}
		for _, m := range f.Records[t] {
			if _, err := store.Save(ctx, table, crf.Record(m)); err != nil {
				return n, fmt.Errorf("seed %s: %w", t, err)
			}
			n++
		}
	}
	return n, nil
}
