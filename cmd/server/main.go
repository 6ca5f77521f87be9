// Command server runs the municipal report ingestion and status aggregation
// API. It loads configuration from the environment (optionally a .env file),
// opens the SQLite store, loads the zone geometry index, starts the
// background reconciliation and scoring loops, and serves HTTP until
// interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/config"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/geo"
	httpapi "github.com/AmjadKhoulani/darayyaconnect-sub004/internal/http"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/observability"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/services"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting darayyaconnect-core")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	zones, err := geo.LoadIndex(cfg.ZonesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ZonesPath).Msg("load zone index")
	}
	log.Info().Int("zones", zones.Len()).Msg("zone index loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup opentelemetry")
	}

	agg := services.NewAggregator(db, cfg.Consensus.HalfLife, cfg.Consensus.Window)
	scorer := &services.Scorer{DB: db, Weights: cfg.Scoring}

	// Background reconciliation: periodically recompute every known
	// zone/service key so consensus decays to unknown even when a zone
	// goes quiet and no new report triggers a recompute.
	go runLoop(ctx, "reconcile", cfg.Consensus.ReconcileInterval, func(ctx context.Context, now time.Time) error {
		return agg.ReconcileAll(ctx, now)
	})

	// Background scoring: project priority scores drift with age, so they
	// are refreshed on a fixed cadence rather than on write.
	go runLoop(ctx, "score", cfg.Scoring.Interval, scorer.RecomputeAll)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, zones, agg, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	// Let in-flight scheduled recomputes land before closing the store.
	agg.Wait()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited gracefully")
}

// runLoop runs fn once immediately and then on every tick until ctx is done.
func runLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context, time.Time) error) {
	if interval <= 0 {
		return
	}
	run := func() {
		if err := fn(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("loop", name).Msg("background loop iteration failed")
		}
	}
	run()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
