package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// ContractRepository handles ingestion contract persistence on Postgres.
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new contract repository.
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c *contract.IngestionContract) error {
	query := `
		INSERT INTO ingestion_contracts (
			contract_id, tenant_id, entity_type, ingestion_path, authority_type,
			is_authoritative, data_scope, regulatory_context, status, created_by,
			created_at, evidence_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		c.ContractID, c.TenantID, string(c.EntityType), c.IngestionPath,
		string(c.AuthorityType), c.IsAuthoritative, c.DataScope,
		c.RegulatoryContext, string(c.Status), c.CreatedBy, c.CreatedAt,
		c.EvidenceCount)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.NewValidationError(errors.CodeContractExists,
				"contract "+c.ContractID+" already exists").WithCause(err)
		}
		return errors.NewInternalError("inserting contract").WithCause(err)
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, contractID string) (*contract.IngestionContract, error) {
	query := `
		SELECT contract_id, tenant_id, entity_type, ingestion_path, authority_type,
		       is_authoritative, data_scope, regulatory_context, status, created_by,
		       created_at, evidence_count
		FROM ingestion_contracts
		WHERE contract_id = $1`

	return r.scanContract(r.db.QueryRow(ctx, query, contractID))
}

func (r *ContractRepository) ActiveFor(ctx context.Context, tenantID string, entityType contract.EntityType) (*contract.IngestionContract, error) {
	query := `
		SELECT contract_id, tenant_id, entity_type, ingestion_path, authority_type,
		       is_authoritative, data_scope, regulatory_context, status, created_by,
		       created_at, evidence_count
		FROM ingestion_contracts
		WHERE tenant_id = $1 AND entity_type = $2 AND status = 'ACTIVE'`

	c, err := r.scanContract(r.db.QueryRow(ctx, query, tenantID, string(entityType)))
	if err != nil {
		if errors.CodeOf(err) == "RESOURCE_NOT_FOUND" {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ContractRepository) IncrementEvidenceCount(ctx context.Context, contractID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_contracts SET evidence_count = evidence_count + 1 WHERE contract_id = $1`,
		contractID)
	if err != nil {
		return errors.NewInternalError("incrementing evidence count").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrContractNotFound
	}
	return nil
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, contractID string, status contract.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_contracts SET status = $2 WHERE contract_id = $1`,
		contractID, string(status))
	if err != nil {
		return errors.NewInternalError("updating contract status").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrContractNotFound
	}
	return nil
}

func (r *ContractRepository) scanContract(row pgx.Row) (*contract.IngestionContract, error) {
	var c contract.IngestionContract
	var entityType, authorityType, status string

	err := row.Scan(&c.ContractID, &c.TenantID, &entityType, &c.IngestionPath,
		&authorityType, &c.IsAuthoritative, &c.DataScope, &c.RegulatoryContext,
		&status, &c.CreatedBy, &c.CreatedAt, &c.EvidenceCount)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrContractNotFound
		}
		return nil, errors.NewInternalError("scanning contract").WithCause(err)
	}

	c.EntityType = contract.EntityType(entityType)
	c.AuthorityType = contract.AuthorityType(authorityType)
	c.Status = contract.Status(status)
	return &c, nil
}
