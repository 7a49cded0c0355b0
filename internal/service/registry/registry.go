package registry

import (
	"context"

	"go.uber.org/zap"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// Service is the contract registry and evidence intake. Contract creation is
// the only way a tenant gains the right to ingest evidence of an entity
// type; there is no implicit default contract.
type Service struct {
	contracts contract.Repository
	evidence  evidence.Repository
	auditLog  ledger.AuditLogRepository
	logger    *zap.Logger
}

// New creates the registry service.
func New(contracts contract.Repository, evidenceRepo evidence.Repository, auditLog ledger.AuditLogRepository, logger *zap.Logger) *Service {
	return &Service{
		contracts: contracts,
		evidence:  evidenceRepo,
		auditLog:  auditLog,
		logger:    logger,
	}
}

// CreateContractInput carries the contract declaration fields.
type CreateContractInput struct {
	ContractID        string
	TenantID          string
	EntityType        contract.EntityType
	IngestionPath     string
	AuthorityType     contract.AuthorityType
	DataScope         string
	RegulatoryContext string
	CreatedBy         string
}

// CreateContract validates and persists an ACTIVE ingestion contract.
// At most one ACTIVE contract may exist per (tenant, entity_type); this is a
// provisional invariant pending confirmation of multi-contract lookup rules,
// enforced here so ActiveFor stays deterministic.
func (s *Service) CreateContract(ctx context.Context, in CreateContractInput) (*contract.IngestionContract, error) {
	c, err := contract.NewIngestionContract(in.ContractID, in.TenantID,
		in.EntityType, in.IngestionPath, in.AuthorityType, in.DataScope,
		in.RegulatoryContext, in.CreatedBy)
	if err != nil {
		return nil, err
	}

	existing, err := s.contracts.ActiveFor(ctx, in.TenantID, in.EntityType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewValidationError(errors.CodeContractExists,
			"tenant "+in.TenantID+" already has an active contract for "+string(in.EntityType))
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, c.TenantID, in.CreatedBy, "contract.created", c.ContractID, map[string]any{
		"entity_type":    string(c.EntityType),
		"authority_type": string(c.AuthorityType),
	})
	s.logger.Info("ingestion contract created",
		zap.String("contract_id", c.ContractID),
		zap.String("tenant_id", c.TenantID),
		zap.String("entity_type", string(c.EntityType)))
	return c, nil
}

// ActiveFor resolves the governing ACTIVE contract, or nil.
func (s *Service) ActiveFor(ctx context.Context, tenantID string, entityType contract.EntityType) (*contract.IngestionContract, error) {
	return s.contracts.ActiveFor(ctx, tenantID, entityType)
}

// RegisterEvidenceInput carries the upload-time evidence fields.
type RegisterEvidenceInput struct {
	EvidenceID string
	TenantID   string
	ContractID string
	Declared   evidence.DeclaredContext
	FileHash   string
	Fixture    bool
	ActorID    string
}

// RegisterEvidence creates evidence in RAW under its governing contract.
// The contract must be ACTIVE and match the evidence tenant and declared
// entity type; the contract's evidence count advances monotonically.
func (s *Service) RegisterEvidence(ctx context.Context, in RegisterEvidenceInput) (*evidence.Evidence, error) {
	c, err := s.contracts.GetByID(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, errors.NewContractInactiveError(in.TenantID, string(in.Declared.EntityType))
	}
	if c.TenantID != in.TenantID {
		return nil, errors.NewTenantMismatchError()
	}
	if c.EntityType != in.Declared.EntityType {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"declared entity_type does not match contract entity_type")
	}

	hash, err := values.NewFileHash(in.FileHash)
	if err != nil {
		return nil, err
	}

	ev, err := evidence.NewEvidence(in.EvidenceID, in.TenantID, in.ContractID, in.Declared, hash)
	if err != nil {
		return nil, err
	}
	ev.Fixture = in.Fixture

	if err := s.evidence.Create(ctx, ev); err != nil {
		return nil, err
	}
	if err := s.contracts.IncrementEvidenceCount(ctx, in.ContractID); err != nil {
		s.logger.Error("failed to increment contract evidence count",
			zap.String("contract_id", in.ContractID), zap.Error(err))
	}

	s.writeAudit(ctx, in.TenantID, in.ActorID, "evidence.registered", ev.ID, map[string]any{
		"contract_id": in.ContractID,
		"file_hash":   hash.String(),
	})
	return ev, nil
}

// writeAudit records an administrative action. Audit failures are logged,
// never surfaced: the side channel is written but never read by the state
// machine.
func (s *Service) writeAudit(ctx context.Context, tenantID, actorID, action, targetID string, detail map[string]any) {
	entry := ledger.NewAuditLogEntry(tenantID, actorID, action, targetID, detail)
	if err := s.auditLog.Write(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}
