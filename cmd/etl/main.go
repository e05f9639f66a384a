// Package main provides the etl command that runs the listings pipeline:
// extraction, normalization, deduplication, validation, and loading.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/magicmaxmagic/ScrappingBot/internal/config"
	"github.com/magicmaxmagic/ScrappingBot/internal/etl"
	"github.com/magicmaxmagic/ScrappingBot/internal/extractor"
	"github.com/magicmaxmagic/ScrappingBot/internal/loader"
	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/report"
	"github.com/magicmaxmagic/ScrappingBot/pkg/metadata"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	phase := flag.String("phase", "full", "Phases to run: full, extract, transform, load, extract-transform, transform-load")
	configPath := flag.String("config", "", "Path to YAML configuration file")
	sourceList := flag.String("source", "", "Comma-separated raw batch files (overrides configured sources)")
	dsn := flag.String("dsn", "", "PostgreSQL connection string (overrides config and environment)")
	batchSize := flag.Int("batch-size", 0, "Upsert batch size (overrides config)")
	strict := flag.Bool("strict", false, "Reject listings missing area or coordinates instead of warning")
	version := flag.Bool("version", false, "Print the pipeline version and exit")
	flag.Parse()

	if *version {
		fmt.Println(metadata.Version)
		return
	}

	// 2. Load Configuration
	// ---------------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if *dsn != "" {
		cfg.Database.URL = *dsn
	}

	if *batchSize > 0 {
		cfg.Pipeline.BatchSize = *batchSize
	}

	if *strict {
		cfg.Pipeline.StrictValidation = true
	}

	log := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	sel, err := etl.ParseSelection(*phase)
	if err != nil {
		log.Error("invalid phase selection", "phase", *phase, "error", err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	sources := buildSources(cfg, *sourceList)
	if sel.Extract && len(sources) == 0 {
		log.Error("no sources to extract; configure pipeline.sources or pass -source")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 starting listings pipeline",
		"phase", sel.Name, "version", metadata.Version, "sources", len(sources))

	// 3. Connect the Destination Store (load phases only)
	// ---------------------------------------------------
	var ldr *loader.Loader

	var storeErr error

	if sel.Load {
		store, err := loader.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			storeErr = err
			log.Error("❌ failed to connect to destination store", "error", err)
		} else {
			defer store.Close()

			if err := store.EnsureSchema(ctx); err != nil {
				storeErr = err
				log.Error("❌ failed to ensure schema", "error", err)
			} else {
				ldr = loader.NewLoader(store, log, cfg.Pipeline.Workers, cfg.Pipeline.BatchSize)
			}
		}
	}

	// 4. Run the Pipeline
	// -------------------
	orch := etl.NewOrchestrator(cfg, log, ldr)
	if storeErr != nil {
		orch.SetStoreError(storeErr)
	}

	rep, runErr := orch.Run(ctx, sel, sources)

	// 5. Final Report
	// ---------------
	fmt.Println()
	fmt.Print(report.Render(rep))
	fmt.Printf("\nReport: %s\n", orch.ReportPath())

	if runErr != nil || !rep.Success {
		os.Exit(1)
	}
}

// buildSources resolves the raw batch files to extract: the -source flag
// wins, otherwise the enabled sources from the configuration.
func buildSources(cfg *config.Config, sourceList string) []extractor.Source {
	var sources []extractor.Source

	if sourceList != "" {
		for _, path := range strings.Split(sourceList, ",") {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}

			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			sources = append(sources, extractor.Source{Name: name, Path: path})
		}

		return sources
	}

	for _, src := range cfg.EnabledSources() {
		sources = append(sources, extractor.Source{Name: src.Name, Path: src.File})
	}

	return sources
}
