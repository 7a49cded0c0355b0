package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// EvidenceRepository handles evidence persistence on Postgres. Updates are
// conditioned on the stored version, giving the gateway its optimistic
// concurrency control.
type EvidenceRepository struct {
	db *pgxpool.Pool
}

// NewEvidenceRepository creates a new evidence repository.
func NewEvidenceRepository(db *pgxpool.Pool) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func (r *EvidenceRepository) Create(ctx context.Context, e *evidence.Evidence) error {
	declared, err := json.Marshal(e.Declared)
	if err != nil {
		return errors.NewInternalError("marshaling declared context").WithCause(err)
	}
	classification, structuring, err := marshalLifecycleFields(e)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evidence (
			id, tenant_id, contract_id, state, declared_context, file_hash,
			classification, structuring, fixture, quarantined, quarantine_reason,
			quarantined_at, uploaded_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.Exec(ctx, query,
		e.ID, e.TenantID, e.ContractID, string(e.State), declared,
		e.FileHash.String(), classification, structuring, e.Fixture,
		e.Quarantined, e.QuarantineReason, e.QuarantinedAt, e.UploadedAt,
		e.UpdatedAt, e.Version)
	if err != nil {
		return errors.NewInternalError("inserting evidence").WithCause(err)
	}
	return nil
}

func (r *EvidenceRepository) GetByID(ctx context.Context, evidenceID string) (*evidence.Evidence, error) {
	query := selectEvidence + ` WHERE id = $1`
	e, err := scanEvidence(r.db.QueryRow(ctx, query, evidenceID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEvidenceNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EvidenceRepository) Update(ctx context.Context, e *evidence.Evidence, expectedVersion int64) error {
	classification, structuring, err := marshalLifecycleFields(e)
	if err != nil {
		return err
	}

	query := `
		UPDATE evidence
		SET state = $2, classification = $3, structuring = $4,
		    updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6`

	tag, err := r.db.Exec(ctx, query,
		e.ID, string(e.State), classification, structuring, e.UpdatedAt,
		expectedVersion)
	if err != nil {
		return errors.NewInternalError("updating evidence").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return evidence.ErrVersionConflict
	}
	e.Version = expectedVersion + 1
	return nil
}

func (r *EvidenceRepository) List(ctx context.Context, tenantID string) ([]*evidence.Evidence, error) {
	query := selectEvidence
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternalError("listing evidence").WithCause(err)
	}
	defer rows.Close()

	return collectEvidence(rows)
}

func (r *EvidenceRepository) ListQuarantined(ctx context.Context) ([]*evidence.Evidence, error) {
	rows, err := r.db.Query(ctx, selectEvidence+` WHERE quarantined ORDER BY id`)
	if err != nil {
		return nil, errors.NewInternalError("listing quarantined evidence").WithCause(err)
	}
	defer rows.Close()

	return collectEvidence(rows)
}

func (r *EvidenceRepository) MarkQuarantined(ctx context.Context, evidenceID, reason string) error {
	// Idempotent: an already-quarantined row keeps its original mark.
	query := `
		UPDATE evidence
		SET quarantined = TRUE, quarantine_reason = $2, quarantined_at = $3
		WHERE id = $1 AND NOT quarantined`

	_, err := r.db.Exec(ctx, query, evidenceID, reason, time.Now().UTC())
	if err != nil {
		return errors.NewInternalError("quarantining evidence").WithCause(err)
	}
	return nil
}

const selectEvidence = `
	SELECT id, tenant_id, contract_id, state, declared_context, file_hash,
	       classification, structuring, fixture, quarantined, quarantine_reason,
	       quarantined_at, uploaded_at, updated_at, version
	FROM evidence`

func marshalLifecycleFields(e *evidence.Evidence) ([]byte, []byte, error) {
	var classification, structuring []byte
	var err error
	if e.Classification != nil {
		if classification, err = json.Marshal(e.Classification); err != nil {
			return nil, nil, errors.NewInternalError("marshaling classification").WithCause(err)
		}
	}
	if e.Structuring != nil {
		if structuring, err = json.Marshal(e.Structuring); err != nil {
			return nil, nil, errors.NewInternalError("marshaling structuring").WithCause(err)
		}
	}
	return classification, structuring, nil
}

func scanEvidence(row pgx.Row) (*evidence.Evidence, error) {
	var e evidence.Evidence
	var state, fileHash string
	var declared, classification, structuring []byte

	err := row.Scan(&e.ID, &e.TenantID, &e.ContractID, &state, &declared,
		&fileHash, &classification, &structuring, &e.Fixture, &e.Quarantined,
		&e.QuarantineReason, &e.QuarantinedAt, &e.UploadedAt, &e.UpdatedAt,
		&e.Version)
	if err != nil {
		return nil, err
	}

	e.State = evidence.State(state)
	if err := json.Unmarshal(declared, &e.Declared); err != nil {
		return nil, errors.NewInternalError("decoding declared context").WithCause(err)
	}
	if len(classification) > 0 {
		e.Classification = &evidence.Classification{}
		if err := json.Unmarshal(classification, e.Classification); err != nil {
			return nil, errors.NewInternalError("decoding classification").WithCause(err)
		}
	}
	if len(structuring) > 0 {
		e.Structuring = &evidence.Structuring{}
		if err := json.Unmarshal(structuring, e.Structuring); err != nil {
			return nil, errors.NewInternalError("decoding structuring").WithCause(err)
		}
	}

	h, err := values.NewFileHash(fileHash)
	if err != nil {
		return nil, err
	}
	e.FileHash = h
	return &e, nil
}

func collectEvidence(rows pgx.Rows) ([]*evidence.Evidence, error) {
	var out []*evidence.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, errors.NewInternalError("scanning evidence row").WithCause(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("iterating evidence rows").WithCause(err)
	}
	return out, nil
}
