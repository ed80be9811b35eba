package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/blob"
	"disclosure-lab/internal/config"
	"disclosure-lab/internal/logging"
	"disclosure-lab/internal/orchestrator"
	"disclosure-lab/internal/pipeline"
	"disclosure-lab/internal/sources"
	"disclosure-lab/internal/storage"
	chstore "disclosure-lab/internal/storage/clickhouse"
	"disclosure-lab/internal/storage/memory"
	"disclosure-lab/internal/storage/migrations"
	pgstore "disclosure-lab/internal/storage/postgres"
)

func main() {
	sourceFlag := flag.String("source", "", "Source type to ingest, comma-separated list, or \"all\" (required)")
	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry runs)")
	outputJSON := flag.Bool("json", false, "Output run summaries as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *sourceFlag == "" {
		logger.Fatal("--source is required (use \"all\" for every registered source)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	zlog := logging.New(logging.ParseLevel(cfg.LogLevel))
	defer zlog.Sync()

	// Resolve the source list against the registry before touching storage.
	var sourceTypes []string
	if *sourceFlag == "all" {
		sourceTypes = sources.Types()
	} else {
		for _, s := range strings.Split(*sourceFlag, ",") {
			sourceTypes = append(sourceTypes, strings.TrimSpace(s))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var politicianStore storage.PoliticianStore = memory.NewPoliticianStore()
	var disclosureStore storage.DisclosureStore = memory.NewDisclosureStore()
	var fileStore storage.StoredFileStore = memory.NewStoredFileStore()
	var correctionStore storage.CorrectionStore = memory.NewCorrectionStore()
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

	exitCode := 0
	for _, sourceType := range sourceTypes {
		summary, err := orch.Run(ctx, sourceType)
		if err != nil {
			logger.Printf("source %s: %v", sourceType, err)
			exitCode = 1
			continue
		}
		if summary.Status == pipeline.StatusFailed {
			exitCode = 1
		}
		printSummary(summary, *outputJSON)
	}
	os.Exit(exitCode)
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.S3Bucket != "" {
		return blob.NewS3Store(ctx, blob.S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region})
	}
	return blob.NewFSStore(cfg.BlobDir)
}

func printSummary(summary *orchestrator.RunSummary, asJSON bool) {
	if asJSON {
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s: %s in %.1fs (run %s)\n",
		summary.Source, summary.Status, summary.DurationSeconds, summary.RunID)
	for _, st := range summary.Stages {
		fmt.Printf("  %-9s %-15s in=%-6d out=%-6d skipped=%-5d failed=%d\n",
			st.Stage, st.Status, st.RecordsInput, st.RecordsOutput, st.RecordsSkipped, st.RecordsFailed)
	}
	if s := summary.PublishStats; s != nil {
		fmt.Printf("  politicians: %d created, %d matched; disclosures: %d inserted, %d updated, %d skipped\n",
			s.PoliticiansCreated, s.PoliticiansMatched,
			s.DisclosuresInserted, s.DisclosuresUpdated, s.DisclosuresSkipped)
	}
}
