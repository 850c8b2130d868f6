package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/edc/internal/platform/auth"
	"github.com/ehr/edc/internal/platform/db"
)

// AuditEntry records who touched which form's data, when, and with what
// result.
type AuditEntry struct {
	UserID    string
	UserRoles []string
	Site      string
	Form      string
	Subject   string
	Action    string // list, validate, submit, catalog
	IPAddress string
	Path      string
	Method    string
	Timestamp time.Time
	RequestID string
	Status    int
}

// AuditRecorder persists audit entries in addition to the log line.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit emits one "crf_access" log line per request under /api/v1/ and
// hands the entry to recorder when one is given.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			req := c.Request()
			ctx := req.Context()
			entry := AuditEntry{
				UserID:    auth.UserIDFromContext(ctx),
				UserRoles: auth.RolesFromContext(ctx),
				Site:      db.SiteFromContext(ctx),
				Form:      c.Param("form"),
				Subject:   c.QueryParam("subject_identifier"),
				Action:    auditAction(req.Method, req.URL.Path),
				IPAddress: c.RealIP(),
				Path:      req.URL.Path,
				Method:    req.Method,
				Timestamp: time.Now().UTC(),
				RequestID: requestID(c),
				Status:    c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.Status = he.Code
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "crf_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("site", entry.Site).
				Str("form", entry.Form).
				Str("subject_identifier", entry.Subject).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.Status).
				Msg("crf_access")

			return err
		}
	}
}

func auditAction(method, path string) string {
	switch {
	case method != http.MethodPost && strings.HasSuffix(path, "/forms"):
		return "catalog"
	case method != http.MethodPost:
		return "list"
	case strings.HasSuffix(path, "/validate"):
		return "validate"
	default:
		return "submit"
	}
}
