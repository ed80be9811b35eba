package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/blob"
	"disclosure-lab/internal/config"
	"disclosure-lab/internal/logging"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/orchestrator"
	"disclosure-lab/internal/pipeline"
	"disclosure-lab/internal/scheduler"
	"disclosure-lab/internal/sources"
	"disclosure-lab/internal/storage"
	chstore "disclosure-lab/internal/storage/clickhouse"
	"disclosure-lab/internal/storage/memory"
	"disclosure-lab/internal/storage/migrations"
	pgstore "disclosure-lab/internal/storage/postgres"
)

// defaultSchedules are the jobs registered with --register-jobs. The US
// feeds refresh nightly after upstream publication; QuiverQuant aggregates
// continuously and gets an hourly interval.
var defaultSchedules = map[string]string{
	"us_house":      "30 2 * * *",
	"us_senate":     "0 3 * * *",
	"uk_parliament": "30 4 * * *",
	"eu_parliament": "0 5 * * *",
	"quiverquant":   "",
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (local development)")
	registerJobs := flag.Bool("register-jobs", false, "Register the default ingestion schedules on startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	zlog := logging.New(logging.ParseLevel(cfg.LogLevel))
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var politicianStore storage.PoliticianStore = memory.NewPoliticianStore()
	var disclosureStore storage.DisclosureStore = memory.NewDisclosureStore()
	var fileStore storage.StoredFileStore = memory.NewStoredFileStore()
	var correctionStore storage.CorrectionStore = memory.NewCorrectionStore()
	var jobStore storage.JobStore = memory.NewJobStore()
	var executionStore storage.ExecutionStore = memory.NewExecutionStore()
	var runMetricStore storage.RunMetricStore

	if !*useMemory {
		if err := cfg.RequireDatabase(); err != nil {
			logger.Fatal(err)
		}
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("run migrations: %v", err)
		}

		politicianStore = pgstore.NewPoliticianStore(pool)
		disclosureStore = pgstore.NewDisclosureStore(pool)
		fileStore = pgstore.NewStoredFileStore(pool)
		correctionStore = pgstore.NewCorrectionStore(pool)
		jobStore = pgstore.NewJobStore(pool)
		executionStore = pgstore.NewExecutionStore(pool)

		if cfg.ClickHouseDSN != "" {
			conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
			defer conn.Close()
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatalf("run clickhouse migrations: %v", err)
			}
			runMetricStore = chstore.NewRunMetricStore(conn)
		}
	}

	var archiver *artifacts.Manager
	if cfg.ArchiveRaw {
		store, err := buildBlobStore(ctx, cfg)
		if err != nil {
			logger.Fatalf("open blob store: %v", err)
		}
		archiver = artifacts.NewManager(store, fileStore, disclosureStore, zlog)
	}

	orch := orchestrator.New(cfg, politicianStore, disclosureStore, correctionStore, runMetricStore, archiver, zlog)
	sched := scheduler.New(jobStore, executionStore, zlog)

	for _, sourceType := range sources.Types() {
		st := sourceType
		sched.RegisterFunc("ingest_"+st, func(ctx context.Context, jobLogger *zap.Logger) error {
			summary, err := orch.Run(ctx, st)
			if err != nil {
				return err
			}
			jobLogger.Info("scheduled ingest finished",
				zap.String("source", st),
				zap.String("status", string(summary.Status)))
			if summary.Status == pipeline.StatusFailed {
				return fmt.Errorf("pipeline for %s failed", st)
			}
			return nil
		})
	}

	if *registerJobs {
		if err := registerDefaultJobs(ctx, sched); err != nil {
			logger.Fatalf("register jobs: %v", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		logger.Fatalf("start scheduler: %v", err)
	}

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: buildMux(sched)}
	go func() {
		logger.Printf("Serving metrics on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
}

func registerDefaultJobs(ctx context.Context, sched *scheduler.Scheduler) error {
	opts := scheduler.JobOptions{AutoRetryOnStartup: true}
	for sourceType, spec := range defaultSchedules {
		jobID := "ingest-" + sourceType
		name := "Ingest " + sourceType
		funcRef := "ingest_" + sourceType

		var err error
		if spec == "" {
			err = sched.AddIntervalJob(ctx, jobID, name, funcRef, time.Hour, opts)
		} else {
			err = sched.AddCronJob(ctx, jobID, name, funcRef, spec, opts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func buildMux(sched *scheduler.Scheduler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		jobs, err := sched.Jobs(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jobs)
	})
	mux.HandleFunc("/executions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sched.History())
	})
	return mux
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.S3Bucket != "" {
		return blob.NewS3Store(ctx, blob.S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region})
	}
	return blob.NewFSStore(cfg.BlobDir)
}
