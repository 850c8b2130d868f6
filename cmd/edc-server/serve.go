package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/domain/submission"
	"github.com/ehr/edc/internal/platform/auth"
	"github.com/ehr/edc/internal/platform/db"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/internal/platform/metrics"
	"github.com/ehr/edc/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CRF validation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetString("port")
			}
			if cmd.Flags().Changed("store") {
				cfg.Store, _ = cmd.Flags().GetString("store")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().String("port", "8000", "Listen port (overrides PORT)")
	cmd.Flags().String("store", config.StoreMemory, "Record store: memory or postgres (overrides STORE)")
	return cmd
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		logger.Warn().Msg("development auth is active: every request is an admin. Do not use this in production.")
	}

	tables, err := recordTables(cfg)
	if err != nil {
		return err
	}
	m, err := models(cfg)
	if err != nil {
		return err
	}

	var (
		store lookup.Store
		pool  *pgxpool.Pool
	)
	ctx := context.Background()
	switch cfg.Store {
	case config.StorePostgres:
		pool, err = openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		store = lookup.NewPGStore(pool)
	default:
		store = lookup.NewMemoryStore()
		logger.Info().Msg("using in-memory record store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := newServer(cfg, logger, newStack(store, tables, m, logger), pool, metrics.New(reg))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer assembles the echo server. pool is nil for the in-memory store.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stack, pool *pgxpool.Pool, m *metrics.Metrics) *echo.Echo {
	st.service.SetMetrics(m)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"store":  cfg.Store,
			"forms":  len(st.catalog.Forms()),
		})
	})
	e.GET("/metrics", m.Handler())

	var (
		authMW   echo.MiddlewareFunc
		siteMW   echo.MiddlewareFunc
		recorder middleware.AuditRecorder
	)
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		})
	}
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool, db.NewMigrator(pool, migrationFiles(cfg)), db.SchemaName(cfg.DefaultSite)))
		siteMW = db.SiteMiddleware(pool, cfg.DefaultSite)
		recorder = middleware.NewPGAuditRecorder(pool)
	} else {
		siteMW = db.SiteOnly(cfg.DefaultSite)
	}

	api := e.Group("/api/v1", authMW, auth.RequireOwnSite(), siteMW, middleware.Audit(logger, recorder))
	submission.NewHandler(st.service).RegisterRoutes(api)
	return e
}
