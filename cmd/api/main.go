package main

import (
	"context"
	"flag"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/complyvault/evidence-ledger-backend/internal/api/rest"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/idempotency"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/cache"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/config"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/repository"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/telemetry"
	"github.com/complyvault/evidence-ledger-backend/internal/service/gateway"
	"github.com/complyvault/evidence-ledger-backend/internal/service/registry"
	"github.com/complyvault/evidence-ledger-backend/internal/service/sweeper"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	slogger := telemetry.SetupSlog(cfg.LogLevel)

	ctx := context.Background()
	provider, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "evidence-ledger-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Sugar().Errorf("telemetry shutdown: %v", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewMetrics(promRegistry)

	var (
		contractRepo contract.Repository
		evidenceRepo evidence.Repository
		ledgerRepo   ledger.Repository
		auditRepo    ledger.AuditLogRepository
	)
	if cfg.Database.URL != "" {
		pool, err := repository.Connect(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		contractRepo = repository.NewContractRepository(pool)
		evidenceRepo = repository.NewEvidenceRepository(pool)
		ledgerRepo = repository.NewLedgerRepository(pool)
		auditRepo = repository.NewAuditLogRepository(pool)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		contractRepo = repository.NewMemoryContractRepository()
		evidenceRepo = repository.NewMemoryEvidenceRepository()
		ledgerRepo = repository.NewMemoryLedgerRepository()
		auditRepo = repository.NewMemoryAuditLogRepository()
	}

	var idemStore idempotency.Store
	if cfg.Redis.URL != "" {
		store, err := cache.NewRedisIdempotencyStore(&cfg.Redis, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		idemStore = store
	} else {
		logger.Warn("no redis configured, using in-memory idempotency store")
		idemStore = idempotency.NewMemoryStore()
	}

	gatewaySvc := gateway.New(evidenceRepo, contractRepo, ledgerRepo, idemStore,
		logger, metrics, cfg.Gateway.MaxApplyRetries)
	registrySvc := registry.New(contractRepo, evidenceRepo, auditRepo, logger)
	sweeperSvc := sweeper.New(evidenceRepo, contractRepo, auditRepo, logger,
		metrics, cfg.Sweeper.FixtureRetention)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sweeperSvc.RunPeriodically(sweepCtx, cfg.Sweeper.Interval)

	handler := rest.NewHandler(gatewaySvc, registrySvc, sweeperSvc, evidenceRepo)
	server := rest.NewServer(cfg, slogger, handler, promRegistry)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
