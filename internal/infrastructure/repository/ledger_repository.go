package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// LedgerRepository handles the append-only ledger on Postgres.
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append assigns the tenant's next sequence number and chains the hash inside
// one transaction. A per-tenant advisory lock serializes concurrent appends;
// the unique constraint on (tenant_id, command_id) backstops the one-event-
// per-command invariant.
func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewInternalError("beginning ledger transaction").WithCause(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, "ledger:"+e.TenantID); err != nil {
		return errors.NewInternalError("acquiring ledger lock").WithCause(err)
	}

	var previousHash string
	var lastSeq uint64
	err = tx.QueryRow(ctx, `
		SELECT event_hash, sequence_num
		FROM ledger_events
		WHERE tenant_id = $1
		ORDER BY sequence_num DESC
		LIMIT 1`, e.TenantID).Scan(&previousHash, &lastSeq)

	seq := values.First()
	switch {
	case err == nil:
		last, serr := values.NewSequenceNumber(lastSeq)
		if serr != nil {
			return serr
		}
		if seq, err = last.Next(); err != nil {
			return err
		}
	case stderrors.Is(err, pgx.ErrNoRows):
		previousHash = ""
	default:
		return errors.NewInternalError("reading ledger head").WithCause(err)
	}

	e.SequenceNum = seq
	if _, err := e.ComputeHash(previousHash); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_events (
			event_id, sequence_num, command_id, command_type, tenant_id,
			evidence_id, actor_id, resulting_state, applied_at, previous_hash,
			event_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.EventID, int64(e.SequenceNum.Value()), e.CommandID,
		string(e.CommandType), e.TenantID, e.EvidenceID, e.ActorID,
		string(e.ResultingState), e.AppliedAt, e.PreviousHash, e.EventHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.NewInternalError("ledger already holds an event for command " + e.CommandID).WithCause(err)
		}
		return errors.NewInternalError("appending ledger event").WithCause(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewInternalError("committing ledger append").WithCause(err)
	}
	return nil
}

func (r *LedgerRepository) ListByTenant(ctx context.Context, tenantID string) ([]*ledger.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, sequence_num, command_id, command_type, tenant_id,
		       evidence_id, actor_id, resulting_state, applied_at,
		       previous_hash, event_hash
		FROM ledger_events
		WHERE tenant_id = $1
		ORDER BY sequence_num`, tenantID)
	if err != nil {
		return nil, errors.NewInternalError("listing ledger events").WithCause(err)
	}
	defer rows.Close()

	var out []*ledger.Event
	for rows.Next() {
		var e ledger.Event
		var seq int64
		var commandType, resultingState string

		if err := rows.Scan(&e.EventID, &seq, &e.CommandID, &commandType,
			&e.TenantID, &e.EvidenceID, &e.ActorID, &resultingState,
			&e.AppliedAt, &e.PreviousHash, &e.EventHash); err != nil {
			return nil, errors.NewInternalError("scanning ledger event").WithCause(err)
		}

		sn, err := values.NewSequenceNumber(uint64(seq))
		if err != nil {
			return nil, err
		}
		e.SequenceNum = sn
		e.CommandType = evidence.CommandType(commandType)
		e.ResultingState = evidence.State(resultingState)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("iterating ledger events").WithCause(err)
	}
	return out, nil
}

func (r *LedgerRepository) CountByCommandID(ctx context.Context, tenantID, commandID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM ledger_events
		WHERE tenant_id = $1 AND command_id = $2`, tenantID, commandID).Scan(&count)
	if err != nil {
		return 0, errors.NewInternalError("counting ledger events").WithCause(err)
	}
	return count, nil
}

// AuditLogRepository persists administrative audit entries on Postgres.
type AuditLogRepository struct {
	db *pgxpool.Pool
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Write(ctx context.Context, entry *ledger.AuditLogEntry) error {
	var detail []byte
	if entry.Detail != nil {
		var err error
		if detail, err = json.Marshal(entry.Detail); err != nil {
			return errors.NewInternalError("marshaling audit detail").WithCause(err)
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.TenantID, entry.ActorID, entry.Action, entry.TargetID,
		detail, entry.CreatedAt)
	if err != nil {
		return errors.NewInternalError("writing audit log entry").WithCause(err)
	}
	return nil
}
