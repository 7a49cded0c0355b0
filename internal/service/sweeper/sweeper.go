package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/telemetry"
)

// Quarantine reasons.
const (
	ReasonFixtureRetention = "fixture_retention_expired"
	ReasonContractInactive = "contract_inactive"
)

// Report summarizes one sweep run for the status endpoint.
type Report struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Scanned     int            `json:"scanned"`
	Quarantined int            `json:"quarantined"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	ByReason    map[string]int `json:"by_reason"`
}

// Service is the quarantine/retention sweeper. It never invokes the command
// gateway and never rewrites lifecycle state; it only adds the parallel
// quarantine flag, one independently committed row at a time. Running it
// twice produces the same terminal quarantine set.
type Service struct {
	evidence  evidence.Repository
	contracts contract.Repository
	auditLog  ledger.AuditLogRepository
	logger    *zap.Logger
	metrics   *telemetry.Metrics

	fixtureRetention time.Duration

	mu         sync.Mutex
	lastReport *Report
}

// New creates the sweeper. metrics may be nil.
func New(evidenceRepo evidence.Repository, contracts contract.Repository, auditLog ledger.AuditLogRepository, logger *zap.Logger, metrics *telemetry.Metrics, fixtureRetention time.Duration) *Service {
	return &Service{
		evidence:         evidenceRepo,
		contracts:        contracts,
		auditLog:         auditLog,
		logger:           logger,
		metrics:          metrics,
		fixtureRetention: fixtureRetention,
	}
}

// Run executes one sweep. Each row's decision is independent: a row that
// cannot be evaluated is logged and counted as failed, and the batch
// continues.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: time.Now().UTC(),
		ByReason:  make(map[string]int),
	}

	rows, err := s.evidence.List(ctx, "")
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		report.Scanned++

		if row.Quarantined {
			report.Skipped++
			continue
		}

		reason, err := s.evaluate(ctx, row)
		if err != nil {
			report.Failed++
			s.logger.Error("sweep evaluation failed",
				zap.String("evidence_id", row.ID),
				zap.Error(err))
			continue
		}
		if reason == "" {
			report.Skipped++
			continue
		}

		if err := s.evidence.MarkQuarantined(ctx, row.ID, reason); err != nil {
			report.Failed++
			s.logger.Error("quarantine mark failed",
				zap.String("evidence_id", row.ID),
				zap.String("reason", reason),
				zap.Error(err))
			continue
		}

		report.Quarantined++
		report.ByReason[reason]++
		if s.metrics != nil {
			s.metrics.QuarantinedTotal.WithLabelValues(reason).Inc()
		}
		s.logger.Info("evidence quarantined",
			zap.String("evidence_id", row.ID),
			zap.String("tenant_id", row.TenantID),
			zap.String("reason", reason))
	}

	report.FinishedAt = time.Now().UTC()

	entry := ledger.NewAuditLogEntry("", "sweeper", "sweeper.run", "", map[string]any{
		"scanned":     report.Scanned,
		"quarantined": report.Quarantined,
		"failed":      report.Failed,
	})
	if err := s.auditLog.Write(ctx, entry); err != nil {
		s.logger.Error("audit log write failed for sweep run", zap.Error(err))
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
	return report, nil
}

// evaluate decides whether a row violates a retention or validity rule.
func (s *Service) evaluate(ctx context.Context, row *evidence.Evidence) (string, error) {
	if row.Fixture && time.Since(row.UploadedAt) > s.fixtureRetention {
		return ReasonFixtureRetention, nil
	}

	c, err := s.contracts.GetByID(ctx, row.ContractID)
	if err != nil {
		return "", err
	}
	if !c.IsActive() {
		return ReasonContractInactive, nil
	}
	return "", nil
}

// RunPeriodically sweeps on the given interval until the context ends.
func (s *Service) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("scheduled sweep failed", zap.Error(err))
			}
		}
	}
}

// LastReport returns the most recent sweep report, or nil.
func (s *Service) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}
