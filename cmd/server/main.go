package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/api"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/config"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/db"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/importer"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/middleware"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/observability"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/syncer"
	"github.com/rajatmakholiya/ES-Analytics-API/internal/warehouse"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	loc, err := time.LoadLocation(cfg.OperationalTZ)
	if err != nil {
		return fmt.Errorf("load operational timezone %q: %w", cfg.OperationalTZ, err)
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	ch, err := warehouse.InitClickHouse(cfg.ClickHouseDSN, warehouse.PoolConfig{
		MaxOpenConns:    cfg.CHMaxOpenConns,
		MaxIdleConns:    cfg.CHMaxIdleConns,
		ConnMaxLifetime: cfg.CHConnMaxLifetime,
		ConnMaxIdleTime: cfg.CHConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer ch.Close()

	// The lease store only guards against overlapping sync runs; without it
	// the pipeline still converges, so Redis being down is not fatal.
	var leases syncer.LeaseStore
	rs, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, sync runs proceed without overlap guard", zap.Error(err))
	} else {
		leases = rs
		defer rs.Close()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	orch := syncer.New(ch, pg, leases, logger, metricsRegistry, loc, cfg.SyncBatchSize, cfg.SyncLeaseTTL)
	sched, err := syncer.NewScheduler(orch, logger, cfg.SyncAt)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	go sched.Run(ctx)

	imp := importer.New(pg, logger, metricsRegistry, cfg.LegacyCSVPath, cfg.ImportBatchSize)

	srvDeps := api.NewServer(logger, pg, orch, imp, metricsRegistry, cfg, loc)

	r := mux.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.WithTraceLogger(logger))

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/analytics/utm/metrics", srvDeps.UTMMetricsHandler).Methods("GET")
	v1.HandleFunc("/analytics/headlines", srvDeps.HeadlinesHandler).Methods("GET")
	v1.HandleFunc("/analytics/sync/manual", srvDeps.ManualSyncHandler).Methods("POST")
	v1.HandleFunc("/analytics/import/legacy", srvDeps.LegacyImportHandler).Methods("POST")

	v1.HandleFunc("/page-mappings", srvDeps.ListPageMappings).Methods("GET")
	v1.HandleFunc("/page-mappings", srvDeps.CreatePageMapping).Methods("POST")
	v1.HandleFunc("/page-mappings/{id}", srvDeps.DeletePageMapping).Methods("DELETE")

	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Analytics API running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
