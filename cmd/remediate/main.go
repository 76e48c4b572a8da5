package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	remediationapp "github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/finz/backend/internal/infrastructure/cache"
	"github.com/finz/backend/internal/infrastructure/config"
	"github.com/finz/backend/internal/infrastructure/logger"
	"github.com/finz/backend/internal/infrastructure/persistence"
	"github.com/finz/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

func main() {
	var (
		mode      string
		scanID    string
		batchSize int
		resume    bool
		logLevel  string
	)

	flag.StringVar(&mode, "mode", "DRY_RUN", "Scan mode: DRY_RUN (report only) or APPLY (rewrite resolvable legacy identifiers)")
	flag.StringVar(&scanID, "scan-id", "", "Scan identifier (generated when empty; required with -resume)")
	flag.IntVar(&batchSize, "batch-size", 0, "Records fetched per scan page (default: from config)")
	flag.BoolVar(&resume, "resume", false, "Resume an interrupted scan from its checkpoint")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	scanMode := allocation.ScanMode(mode)
	if scanMode != allocation.ScanModeDryRun && scanMode != allocation.ScanModeApply {
		fmt.Fprintf(os.Stderr, "Invalid mode %q: must be DRY_RUN or APPLY\n", mode)
		os.Exit(2)
	}
	if resume && scanID == "" {
		fmt.Fprintln(os.Stderr, "-resume requires -scan-id")
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// The scan refuses to classify anything without a loaded taxonomy,
	// so load it up front and fail fast.
	entryRepo := persistence.NewGormEntryRepository(db.DB)
	aliasRepo := persistence.NewGormAliasRepository(db.DB)
	taxonomyStore := taxonomy.NewStore(entryRepo, aliasRepo)
	ctx := context.Background()
	snapshot, err := taxonomyStore.Load(ctx)
	if err != nil {
		log.Fatal("Failed to load taxonomy", zap.Error(err))
	}
	log.Info("Taxonomy loaded",
		zap.Int("entries", snapshot.EntryCount()),
		zap.Int("aliases", snapshot.AliasCount()),
	)

	remediationStore, err := cache.NewRemediationStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize remediation store", zap.Error(err))
	}
	defer func() {
		if err := remediationStore.Close(); err != nil {
			log.Error("Error closing remediation store", zap.Error(err))
		}
	}()

	var reportArchive remediationapp.ReportArchive
	if cfg.Remediation.ReportBucket {
		s3Archive, err := storage.NewS3ReportArchive(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		reportArchive = s3Archive
	} else {
		reportArchive = storage.NewStubReportArchive()
	}

	recordRepo := persistence.NewGormRecordRepository(db.DB)
	scanner := remediationapp.NewScanner(taxonomyStore, recordRepo, remediationStore, log)
	service := remediationapp.NewService(scanner, remediationStore, reportArchive, log)

	if batchSize <= 0 {
		batchSize = cfg.Remediation.BatchSize
	}

	report, err := service.Run(ctx, remediationapp.ScanOptions{
		ScanID:    scanID,
		Mode:      scanMode,
		BatchSize: batchSize,
		Resume:    resume,
	})
	if err != nil {
		log.Fatal("Scan failed", zap.Error(err))
	}

	// The report goes to stdout as JSON; unresolvable or conflicted
	// findings are a report outcome, not a process failure.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal("Failed to encode report", zap.Error(err))
	}

	log.Info("Scan complete",
		zap.String("scan_id", report.ScanID),
		zap.String("mode", string(report.Mode)),
		zap.Int("scanned", report.Scanned),
		zap.Int("remediated", report.Remediated),
		zap.Int("unresolvable", report.Unresolvable),
		zap.Int("conflicted", report.Conflicted),
	)
}
