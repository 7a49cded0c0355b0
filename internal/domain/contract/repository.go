package contract

import "context"

// Repository defines persistence for ingestion contracts.
type Repository interface {
	// Create persists a new contract. Implementations must fail if a
	// contract with the same ContractID already exists.
	Create(ctx context.Context, c *IngestionContract) error

	// GetByID retrieves a contract by its identifier.
	GetByID(ctx context.Context, contractID string) (*IngestionContract, error)

	// ActiveFor returns the ACTIVE contract governing (tenant, entity type),
	// or nil when none exists. At most one ACTIVE contract may exist per key.
	ActiveFor(ctx context.Context, tenantID string, entityType EntityType) (*IngestionContract, error)

	// IncrementEvidenceCount bumps the monotonic evidence counter.
	IncrementEvidenceCount(ctx context.Context, contractID string) error

	// UpdateStatus transitions the contract lifecycle status. Used by
	// operators to suspend or retire a contract; never rewrites other fields.
	UpdateStatus(ctx context.Context, contractID string, status Status) error
}
