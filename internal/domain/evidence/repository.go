package evidence

import (
	"context"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// ErrVersionConflict signals an optimistic-concurrency clash: the row changed
// between read and update. Callers re-read and re-run their checks.
var ErrVersionConflict = errors.NewInternalError("evidence version conflict")

// Repository defines persistence for evidence records.
type Repository interface {
	// Create persists new evidence in RAW.
	Create(ctx context.Context, e *Evidence) error

	// GetByID retrieves evidence by identifier. Returns a copy safe to
	// mutate; callers persist changes through Update.
	GetByID(ctx context.Context, evidenceID string) (*Evidence, error)

	// Update persists evidence conditioned on its version being unchanged
	// since the read, and bumps the version. Returns ErrVersionConflict
	// otherwise.
	Update(ctx context.Context, e *Evidence, expectedVersion int64) error

	// List returns all evidence for a tenant; empty tenantID means all
	// tenants (sweeper use).
	List(ctx context.Context, tenantID string) ([]*Evidence, error)

	// ListQuarantined returns quarantined evidence across tenants for the
	// export view.
	ListQuarantined(ctx context.Context) ([]*Evidence, error)

	// MarkQuarantined sets the quarantine flag on one row, independently
	// committed. Idempotent.
	MarkQuarantined(ctx context.Context, evidenceID, reason string) error
}
