package main

import (
	"context"
	"flag"
	"log"

	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/config"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/repository"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/telemetry"
	"github.com/complyvault/evidence-ledger-backend/internal/service/sweeper"
)

// One-shot quarantine/retention sweep against the configured database.
// The API server also sweeps on its own interval; this binary exists for
// operator-triggered runs and cron.
func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("sweeper requires a configured database")
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := repository.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	svc := sweeper.New(
		repository.NewEvidenceRepository(pool),
		repository.NewContractRepository(pool),
		repository.NewAuditLogRepository(pool),
		logger, nil, cfg.Sweeper.FixtureRetention)

	report, err := svc.Run(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	logger.Sugar().Infow("sweep complete",
		"scanned", report.Scanned,
		"quarantined", report.Quarantined,
		"skipped", report.Skipped,
		"failed", report.Failed)
}
