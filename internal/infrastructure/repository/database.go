package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/config"
)

// bootstrapDDL creates the ledger schema on first connect. Every table is
// additive; ledger_events carries the uniqueness constraint that enforces
// one event per command_id.
const bootstrapDDL = `
CREATE TABLE IF NOT EXISTS ingestion_contracts (
	contract_id        TEXT PRIMARY KEY,
	tenant_id          TEXT NOT NULL,
	entity_type        TEXT NOT NULL,
	ingestion_path     TEXT NOT NULL,
	authority_type     TEXT NOT NULL,
	is_authoritative   BOOLEAN NOT NULL,
	data_scope         TEXT NOT NULL DEFAULT '',
	regulatory_context TEXT NOT NULL,
	status             TEXT NOT NULL,
	created_by         TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	evidence_count     BIGINT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_contracts_active_key
	ON ingestion_contracts (tenant_id, entity_type)
	WHERE status = 'ACTIVE';

CREATE TABLE IF NOT EXISTS evidence (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	contract_id       TEXT NOT NULL REFERENCES ingestion_contracts(contract_id),
	state             TEXT NOT NULL,
	declared_context  JSONB NOT NULL,
	file_hash         TEXT NOT NULL,
	classification    JSONB,
	structuring       JSONB,
	fixture           BOOLEAN NOT NULL DEFAULT FALSE,
	quarantined       BOOLEAN NOT NULL DEFAULT FALSE,
	quarantine_reason TEXT NOT NULL DEFAULT '',
	quarantined_at    TIMESTAMPTZ,
	uploaded_at       TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	version           BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_evidence_tenant ON evidence (tenant_id);

CREATE TABLE IF NOT EXISTS ledger_events (
	event_id        UUID PRIMARY KEY,
	sequence_num    BIGINT NOT NULL,
	command_id      TEXT NOT NULL,
	command_type    TEXT NOT NULL,
	tenant_id       TEXT NOT NULL,
	evidence_id     TEXT NOT NULL,
	actor_id        TEXT NOT NULL,
	resulting_state TEXT NOT NULL,
	applied_at      TIMESTAMPTZ NOT NULL,
	previous_hash   TEXT NOT NULL,
	event_hash      TEXT NOT NULL,
	UNIQUE (tenant_id, command_id),
	UNIQUE (tenant_id, sequence_num)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         UUID PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	detail     JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Connect opens a pgx pool and bootstraps the schema.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, bootstrapDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}

	return pool, nil
}
