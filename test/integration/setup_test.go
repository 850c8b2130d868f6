//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ehr/edc/internal/platform/db"
	"github.com/ehr/edc/migrations"
)

// globalPool is shared by every test and initialised once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("edctest"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() { _ = testcontainers.TerminateContainer(ctr) }

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("connection string: %w", err)
	}

	pool, err := db.NewPool(ctx, connStr, 10, 1)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// createSite creates and migrates a site schema and drops it when the test
// ends.
func createSite(t *testing.T, ctx context.Context, prefix string) string {
	t.Helper()
	site := fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	if err := db.CreateSiteSchema(ctx, globalPool, site, migrations.FS); err != nil {
		t.Fatalf("create site schema %s: %v", site, err)
	}
	t.Cleanup(func() {
		if _, err := globalPool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+db.SchemaName(site)+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema for %s: %v", site, err)
		}
	})
	return site
}

// withSiteConn runs fn with a site-scoped connection in its context, the
// way SiteMiddleware does for requests.
func withSiteConn(ctx context.Context, site string, fn func(ctx context.Context) error) error {
	conn, err := globalPool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", db.SchemaName(site))); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	ctx = context.WithValue(ctx, db.SiteIDKey, site)
	ctx = context.WithValue(ctx, db.DBConnKey, conn)
	return fn(ctx)
}

func TestNewPool_SessionSettings(t *testing.T) {
	var tz, app string
	if err := globalPool.QueryRow(context.Background(),
		"SELECT current_setting('TimeZone'), current_setting('application_name')").Scan(&tz, &app); err != nil {
		t.Fatalf("read session settings: %v", err)
	}
	if tz != "UTC" {
		t.Errorf("expected UTC sessions, got %s", tz)
	}
	if app != "edc-server" {
		t.Errorf("expected application_name edc-server, got %s", app)
	}
}
