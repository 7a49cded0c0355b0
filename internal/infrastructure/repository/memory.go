package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// In-memory repositories back single-node deployments and the adversarial
// test suites. They honor the same contracts as the Postgres stores,
// including optimistic concurrency and ledger append-only semantics.

// MemoryContractRepository implements contract.Repository.
type MemoryContractRepository struct {
	mu        sync.RWMutex
	contracts map[string]*contract.IngestionContract
}

func NewMemoryContractRepository() *MemoryContractRepository {
	return &MemoryContractRepository{contracts: make(map[string]*contract.IngestionContract)}
}

func (r *MemoryContractRepository) Create(_ context.Context, c *contract.IngestionContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[c.ContractID]; exists {
		return errors.NewValidationError(errors.CodeContractExists,
			"contract "+c.ContractID+" already exists")
	}
	clone := *c
	r.contracts[c.ContractID] = &clone
	return nil
}

func (r *MemoryContractRepository) GetByID(_ context.Context, contractID string) (*contract.IngestionContract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[contractID]
	if !ok {
		return nil, errors.ErrContractNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *MemoryContractRepository) ActiveFor(_ context.Context, tenantID string, entityType contract.EntityType) (*contract.IngestionContract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.contracts {
		if c.TenantID == tenantID && c.EntityType == entityType && c.IsActive() {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemoryContractRepository) IncrementEvidenceCount(_ context.Context, contractID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contracts[contractID]
	if !ok {
		return errors.ErrContractNotFound
	}
	c.EvidenceCount++
	return nil
}

func (r *MemoryContractRepository) UpdateStatus(_ context.Context, contractID string, status contract.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contracts[contractID]
	if !ok {
		return errors.ErrContractNotFound
	}
	c.Status = status
	return nil
}

// MemoryEvidenceRepository implements evidence.Repository.
type MemoryEvidenceRepository struct {
	mu   sync.RWMutex
	rows map[string]*evidence.Evidence
}

func NewMemoryEvidenceRepository() *MemoryEvidenceRepository {
	return &MemoryEvidenceRepository{rows: make(map[string]*evidence.Evidence)}
}

func (r *MemoryEvidenceRepository) Create(_ context.Context, e *evidence.Evidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[e.ID]; exists {
		return errors.NewValidationError(errors.CodeValidationError,
			"evidence "+e.ID+" already exists")
	}
	r.rows[e.ID] = e.Clone()
	return nil
}

func (r *MemoryEvidenceRepository) GetByID(_ context.Context, evidenceID string) (*evidence.Evidence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rows[evidenceID]
	if !ok {
		return nil, errors.ErrEvidenceNotFound
	}
	return e.Clone(), nil
}

func (r *MemoryEvidenceRepository) Update(_ context.Context, e *evidence.Evidence, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[e.ID]
	if !ok {
		return errors.ErrEvidenceNotFound
	}
	if current.Version != expectedVersion {
		return evidence.ErrVersionConflict
	}

	updated := e.Clone()
	updated.Version = expectedVersion + 1
	r.rows[e.ID] = updated
	e.Version = updated.Version
	return nil
}

func (r *MemoryEvidenceRepository) List(_ context.Context, tenantID string) ([]*evidence.Evidence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*evidence.Evidence
	for _, e := range r.rows {
		if tenantID == "" || e.TenantID == tenantID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryEvidenceRepository) ListQuarantined(_ context.Context) ([]*evidence.Evidence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*evidence.Evidence
	for _, e := range r.rows {
		if e.Quarantined {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryEvidenceRepository) MarkQuarantined(_ context.Context, evidenceID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[evidenceID]
	if !ok {
		return errors.ErrEvidenceNotFound
	}
	e.MarkQuarantined(reason, time.Now().UTC())
	return nil
}

// MemoryLedgerRepository implements ledger.Repository.
type MemoryLedgerRepository struct {
	mu        sync.Mutex
	byTenant  map[string][]*ledger.Event
	byCommand map[string]struct{}
}

func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		byTenant:  make(map[string][]*ledger.Event),
		byCommand: make(map[string]struct{}),
	}
}

func commandKey(tenantID, commandID string) string {
	return tenantID + "/" + commandID
}

func (r *MemoryLedgerRepository) Append(_ context.Context, e *ledger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := commandKey(e.TenantID, e.CommandID)
	if _, exists := r.byCommand[key]; exists {
		return errors.NewInternalError("ledger already holds an event for command " + e.CommandID)
	}

	chain := r.byTenant[e.TenantID]

	previousHash := ""
	seq := values.First()
	if n := len(chain); n > 0 {
		previousHash = chain[n-1].EventHash
		next, err := chain[n-1].SequenceNum.Next()
		if err != nil {
			return err
		}
		seq = next
	}

	e.SequenceNum = seq
	if _, err := e.ComputeHash(previousHash); err != nil {
		return err
	}

	r.byTenant[e.TenantID] = append(chain, e)
	r.byCommand[key] = struct{}{}
	return nil
}

func (r *MemoryLedgerRepository) ListByTenant(_ context.Context, tenantID string) ([]*ledger.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.byTenant[tenantID]
	out := make([]*ledger.Event, len(chain))
	copy(out, chain)
	return out, nil
}

func (r *MemoryLedgerRepository) CountByCommandID(_ context.Context, tenantID, commandID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCommand[commandKey(tenantID, commandID)]; exists {
		return 1, nil
	}
	return 0, nil
}

// MemoryAuditLogRepository implements ledger.AuditLogRepository.
type MemoryAuditLogRepository struct {
	mu      sync.Mutex
	entries []*ledger.AuditLogEntry
}

func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

func (r *MemoryAuditLogRepository) Write(_ context.Context, entry *ledger.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries exposes written entries for tests.
func (r *MemoryAuditLogRepository) Entries() []*ledger.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ledger.AuditLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
