package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/edc/internal/platform/db"
)

// PGAuditRecorder writes audit entries to the crf_audit table of the
// entry's site schema. Entries without a site are only logged.
type PGAuditRecorder struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPGAuditRecorder(pool *pgxpool.Pool) *PGAuditRecorder {
	return &PGAuditRecorder{pool: pool, timeout: 2 * time.Second}
}

func (r *PGAuditRecorder) RecordAccess(entry AuditEntry) error {
	if entry.Site == "" {
		return nil
	}
	// The request connection is released by now.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	q := fmt.Sprintf(`INSERT INTO %s.crf_audit
		(request_id, user_id, roles, form, subject_identifier, action, method, path, status, ip_address, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, db.SchemaName(entry.Site))
	_, err := r.pool.Exec(ctx, q,
		entry.RequestID, entry.UserID, entry.UserRoles, entry.Form, entry.Subject,
		entry.Action, entry.Method, entry.Path, entry.Status, entry.IPAddress, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
