package sweeper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/repository"
)

type fixture struct {
	svc       *Service
	contracts *repository.MemoryContractRepository
	evidence  *repository.MemoryEvidenceRepository
	audit     *repository.MemoryAuditLogRepository
}

func newFixture(t *testing.T, retention time.Duration) *fixture {
	t.Helper()

	contracts := repository.NewMemoryContractRepository()
	evidenceRepo := repository.NewMemoryEvidenceRepository()
	audit := repository.NewMemoryAuditLogRepository()

	return &fixture{
		svc:       New(evidenceRepo, contracts, audit, zap.NewNop(), nil, retention),
		contracts: contracts,
		evidence:  evidenceRepo,
		audit:     audit,
	}
}

func (f *fixture) seedContract(t *testing.T, contractID, tenantID string) {
	t.Helper()
	c, err := contract.NewIngestionContract(contractID, tenantID,
		contract.EntitySupplier, "uploads/"+tenantID, contract.AuthorityDeclarative,
		"scope2", "CSRD", "admin")
	require.NoError(t, err)
	require.NoError(t, f.contracts.Create(context.Background(), c))
}

func (f *fixture) seedEvidence(t *testing.T, evidenceID, tenantID, contractID string, fixtureFlag bool, uploadedAt time.Time) {
	t.Helper()
	ev, err := evidence.NewEvidence(evidenceID, tenantID, contractID, evidence.DeclaredContext{
		EntityType:  contract.EntitySupplier,
		IntendedUse: "emissions_reporting",
		SourceRole:  "supplier_admin",
	}, values.MustNewFileHash(strings.Repeat("a", 64)))
	require.NoError(t, err)
	ev.Fixture = fixtureFlag
	ev.UploadedAt = uploadedAt
	require.NoError(t, f.evidence.Create(context.Background(), ev))
}

func (f *fixture) get(t *testing.T, evidenceID string) *evidence.Evidence {
	t.Helper()
	ev, err := f.evidence.GetByID(context.Background(), evidenceID)
	require.NoError(t, err)
	return ev
}

func TestRun_QuarantinesExpiredFixtures(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	now := time.Now().UTC()

	f.seedContract(t, "C1", "T1")
	f.seedEvidence(t, "E-old-fixture", "T1", "C1", true, now.Add(-100*time.Hour))
	f.seedEvidence(t, "E-fresh-fixture", "T1", "C1", true, now.Add(-time.Hour))
	f.seedEvidence(t, "E-old-real", "T1", "C1", false, now.Add(-100*time.Hour))

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Quarantined)
	assert.Equal(t, 1, report.ByReason[ReasonFixtureRetention])

	assert.True(t, f.get(t, "E-old-fixture").Quarantined)
	assert.False(t, f.get(t, "E-fresh-fixture").Quarantined)
	assert.False(t, f.get(t, "E-old-real").Quarantined)
}

func TestRun_QuarantinesInactiveContractEvidence(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedContract(t, "C1", "T1")
	f.seedContract(t, "C2", "T2")
	f.seedEvidence(t, "E1", "T1", "C1", false, now)
	f.seedEvidence(t, "E2", "T2", "C2", false, now)
	require.NoError(t, f.contracts.UpdateStatus(ctx, "C1", contract.StatusSuspended))

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Quarantined)
	assert.Equal(t, 1, report.ByReason[ReasonContractInactive])

	q := f.get(t, "E1")
	assert.True(t, q.Quarantined)
	assert.Equal(t, ReasonContractInactive, q.QuarantineReason)
	assert.False(t, f.get(t, "E2").Quarantined)
}

func TestRun_NeverRewritesLifecycleState(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedContract(t, "C1", "T1")
	f.seedEvidence(t, "E1", "T1", "C1", true, now.Add(-100*time.Hour))

	_, err := f.svc.Run(ctx)
	require.NoError(t, err)

	ev := f.get(t, "E1")
	assert.Equal(t, evidence.StateRaw, ev.State, "quarantine is a flag, not a transition")
	assert.Equal(t, evidence.StateQuarantined, ev.EffectiveState())
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedContract(t, "C1", "T1")
	f.seedEvidence(t, "E1", "T1", "C1", true, now.Add(-100*time.Hour))

	first, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quarantined)

	firstAt := *f.get(t, "E1").QuarantinedAt

	second, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Quarantined)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, firstAt, *f.get(t, "E1").QuarantinedAt,
		"re-running preserves the original quarantine record")
}

func TestRun_PerRowFailureContinuesBatch(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedContract(t, "C1", "T1")
	// E-orphan references a contract that does not exist; its evaluation
	// fails but must not stop the sweep.
	f.seedEvidence(t, "E-orphan", "T1", "C-missing", false, now)
	f.seedEvidence(t, "E-stale", "T1", "C1", true, now.Add(-100*time.Hour))

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Quarantined)
	assert.True(t, f.get(t, "E-stale").Quarantined)
}

func TestRun_WritesAuditEntryAndReport(t *testing.T) {
	f := newFixture(t, 72*time.Hour)
	ctx := context.Background()

	f.seedContract(t, "C1", "T1")
	f.seedEvidence(t, "E1", "T1", "C1", false, time.Now().UTC())

	assert.Nil(t, f.svc.LastReport())

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, report, f.svc.LastReport())

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "sweeper.run", entries[0].Action)
	assert.Equal(t, 1, entries[0].Detail["scanned"])
}
