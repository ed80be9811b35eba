package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/blob"
	"disclosure-lab/internal/config"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/logging"
	"disclosure-lab/internal/pdftext"
	"disclosure-lab/internal/storage/migrations"
	pgstore "disclosure-lab/internal/storage/postgres"
	"disclosure-lab/internal/transform"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	normalizeNames := flag.Bool("normalize-politicians", false, "Run the politician data-quality pass")
	reparsePDFs := flag.Bool("reparse-pdfs", false, "Re-parse stored PDFs whose parsing is pending")
	reparseLimit := flag.Int("limit", 100, "Max PDFs to re-parse in one pass")
	outputJSON := flag.Bool("json", false, "Output results as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[backfill] ", log.LstdFlags)

	if !*normalizeNames && !*reparsePDFs {
		logger.Fatal("nothing to do: pass --normalize-politicians and/or --reparse-pdfs")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal(err)
	}
	zlog := logging.New(logging.ParseLevel(cfg.LogLevel))
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("run migrations: %v", err)
	}

	if *normalizeNames {
		normalizer := transform.NewNormalizer(
			pgstore.NewPoliticianStore(pool),
			pgstore.NewCorrectionStore(pool),
			zlog,
		)
		result, err := normalizer.Run(ctx)
		if err != nil {
			logger.Fatalf("normalize politicians: %v", err)
		}
		printResult("politician normalization", result, *outputJSON)
	}

	if *reparsePDFs {
		store, err := buildBlobStore(ctx, cfg)
		if err != nil {
			logger.Fatalf("open blob store: %v", err)
		}
		manager := artifacts.NewManager(store,
			pgstore.NewStoredFileStore(pool),
			pgstore.NewDisclosureStore(pool),
			zlog)

		result, err := reparse(ctx, manager, *reparseLimit)
		if err != nil {
			logger.Fatalf("reparse pdfs: %v", err)
		}
		printResult("pdf reparse", result, *outputJSON)
	}
}

// reparseResult summarizes one PDF-reprocessing pass.
type reparseResult struct {
	Scanned      int
	Parsed       int
	Failed       int
	Transactions int
}

// reparse pulls pending PDFs from the raw bucket, extracts their transaction
// tables and transitions their parse status.
func reparse(ctx context.Context, manager *artifacts.Manager, limit int) (*reparseResult, error) {
	files, err := manager.FilesToParse(ctx, domain.BucketRawPDFs, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	extractor := pdftext.NewTextLayerExtractor()
	result := &reparseResult{Scanned: len(files)}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := manager.Fetch(ctx, f)
		if err != nil {
			result.Failed++
			_ = manager.MarkFailed(ctx, f.ID, err.Error())
			continue
		}

		txs := pdftext.ParseTransactions(extractor.ExtractText(ctx, data))
		if err := manager.MarkParsed(ctx, f.ID, len(txs)); err != nil {
			result.Failed++
			continue
		}
		result.Parsed++
		result.Transactions += len(txs)
	}
	return result, nil
}

func printResult(label string, result any, asJSON bool) {
	if asJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("%s: %+v\n", label, result)
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.S3Bucket != "" {
		return blob.NewS3Store(ctx, blob.S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region})
	}
	return blob.NewFSStore(cfg.BlobDir)
}
