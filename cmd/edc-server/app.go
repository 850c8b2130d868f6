package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/domain/submission"
	"github.com/ehr/edc/internal/platform/db"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/migrations"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// recordTables overlays RECORD_TYPES_FILE on the built-in mapping.
func recordTables(cfg *config.Config) (map[lookup.RecordType]string, error) {
	tables := lookup.DefaultTables()
	overrides, err := cfg.RecordTables()
	if err != nil {
		return nil, err
	}
	for t, table := range overrides {
		tables[lookup.RecordType(t)] = table
	}
	return tables, nil
}

func migrationFiles(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

// stack is the validation core shared by every command.
type stack struct {
	store    lookup.Store
	registry *lookup.Registry
	catalog  *submission.Catalog
	service  *submission.Service
}

// models binds the validators to the default record types with the
// configured consent order.
func models(cfg *config.Config) (subject.Models, error) {
	m := subject.DefaultModels()
	order, err := subject.ParseConsentOrder(cfg.ConsentOrder)
	if err != nil {
		return m, fmt.Errorf("CONSENT_ORDER: %w", err)
	}
	m.ConsentOrder = order
	return m, nil
}

func newStack(store lookup.Store, tables map[lookup.RecordType]string, m subject.Models, logger zerolog.Logger) *stack {
	reg := lookup.NewRegistryFromStore(store, tables)
	catalog := submission.NewCatalog(reg, m)
	return &stack{
		store:    store,
		registry: reg,
		catalog:  catalog,
		service:  submission.NewService(catalog, store, reg, logger),
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}
