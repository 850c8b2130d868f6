package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGStore keeps every record type in the crf_record table of the site
// schema, keyed by the configured table label. Field values live in a
// jsonb column so that any form can be stored without a migration.
type PGStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

func (s *PGStore) Repository(table string) Repository {
	return &pgRepo{store: s, table: table}
}

func (s *PGStore) Save(ctx context.Context, table string, rec crf.Record) (string, error) {
	id := uuid.New()
	fields, err := json.Marshal(normalizeForJSON(rec))
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	var subject *string
	if v, ok := rec.String(crf.SubjectIdentifierField); ok {
		subject = &v
	}
	var reported *time.Time
	if v, ok := rec.Time(crf.ReportDatetimeField); ok {
		reported = &v
	}

	_, err = s.conn(ctx).Exec(ctx, `
		INSERT INTO crf_record (id, record_type, subject_identifier, report_datetime, fields)
		VALUES ($1, $2, $3, $4, $5)`,
		id, table, subject, reported, fields)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", table, err)
	}
	return id.String(), nil
}

func (s *PGStore) List(ctx context.Context, table string, f Filter, limit, offset int) ([]crf.Record, int, error) {
	where, args := whereClause(table, f)

	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM crf_record WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}

	q := fmt.Sprintf(`SELECT `+recordCols+` FROM crf_record WHERE %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	recs, err := s.query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table, err)
	}
	return recs, total, nil
}

const recordCols = `id, fields, created_at`

func (s *PGStore) query(ctx context.Context, q string, args ...interface{}) ([]crf.Record, error) {
	rows, err := s.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []crf.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (crf.Record, error) {
	var (
		id      uuid.UUID
		raw     []byte
		created time.Time
	)
	if err := row.Scan(&id, &raw, &created); err != nil {
		return nil, err
	}
	rec := crf.Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	rec["id"] = id.String()
	rec["created"] = created
	return rec, nil
}

// whereClause turns f into parameterised jsonb equalities. The subject
// filter uses the indexed column.
func whereClause(table string, f Filter) (string, []interface{}) {
	conds := []string{"record_type = $1"}
	args := []interface{}{table}
	for k, v := range f {
		if k == crf.SubjectIdentifierField {
			args = append(args, crf.Text(v))
			conds = append(conds, fmt.Sprintf("subject_identifier = $%d", len(args)))
			continue
		}
		args = append(args, k, crf.Text(v))
		conds = append(conds, fmt.Sprintf("fields->>$%d = $%d", len(args)-1, len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// normalizeForJSON stores times in UTC so that the jsonb text form matches
// crf.Text in filters.
func normalizeForJSON(rec crf.Record) crf.Record {
	out := rec.Clone()
	for k, v := range out {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.UTC()
		case *time.Time:
			if t != nil {
				out[k] = t.UTC()
			}
		}
	}
	return out
}

type pgRepo struct {
	store *PGStore
	table string
}

func (r *pgRepo) Latest(ctx context.Context, f Filter) (crf.Record, bool, error) {
	where, args := whereClause(r.table, f)
	row := r.store.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM crf_record WHERE `+where+` ORDER BY seq DESC LIMIT 1`, args...)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (r *pgRepo) Get(ctx context.Context, f Filter) (crf.Record, error) {
	where, args := whereClause(r.table, f)
	recs, err := r.store.query(ctx, `SELECT `+recordCols+` FROM crf_record WHERE `+where+` ORDER BY seq LIMIT 2`, args...)
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return recs[0], nil
	default:
		return nil, ErrMultipleFound
	}
}

func (r *pgRepo) Filter(ctx context.Context, f Filter) ([]crf.Record, error) {
	where, args := whereClause(r.table, f)
	return r.store.query(ctx, `SELECT `+recordCols+` FROM crf_record WHERE `+where+` ORDER BY seq`, args...)
}
