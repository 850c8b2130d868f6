package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/edc/internal/platform/crf"
)

// MemoryStore keeps records in insertion order per table. It backs the
// offline CLI and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]crf.Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]crf.Record)}
}

// Repository returns the repository for table.
func (s *MemoryStore) Repository(table string) Repository {
	return &memoryRepo{store: s, table: table}
}

// Save appends a copy of rec to table and returns its new id.
func (s *MemoryStore) Save(_ context.Context, table string, rec crf.Record) (string, error) {
	id := uuid.New().String()
	stored := rec.Clone()
	stored["id"] = id
	if !stored.Present("created") {
		stored["created"] = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], stored)
	return id, nil
}

// List returns matching records newest first.
func (s *MemoryStore) List(_ context.Context, table string, f Filter, limit, offset int) ([]crf.Record, int, error) {
	all := s.match(table, f)
	total := len(all)
	var out []crf.Record
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, total, nil
}

func (s *MemoryStore) match(table string, f Filter) []crf.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crf.Record
	for _, rec := range s.tables[table] {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

type memoryRepo struct {
	store *MemoryStore
	table string
}

func (r *memoryRepo) Latest(_ context.Context, f Filter) (crf.Record, bool, error) {
	recs := r.store.match(r.table, f)
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[len(recs)-1], true, nil
}

func (r *memoryRepo) Get(_ context.Context, f Filter) (crf.Record, error) {
	recs := r.store.match(r.table, f)
	switch len(recs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return recs[0], nil
	default:
		return nil, ErrMultipleFound
	}
}

func (r *memoryRepo) Filter(_ context.Context, f Filter) ([]crf.Record, error) {
	return r.store.match(r.table, f), nil
}
