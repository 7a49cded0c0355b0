package ledger

import "context"

// Repository defines the append-only ledger store.
type Repository interface {
	// Append assigns the next per-tenant sequence number, chains the event
	// hash to the tenant's latest event, and persists it. Implementations
	// must reject a second event for an already-appended command_id.
	Append(ctx context.Context, e *Event) error

	// ListByTenant returns a tenant's events in append order.
	ListByTenant(ctx context.Context, tenantID string) ([]*Event, error)

	// CountByCommandID returns how many events exist for a command_id.
	// The ledger invariant makes this 0 or 1.
	CountByCommandID(ctx context.Context, tenantID, commandID string) (int, error)
}

// AuditLogRepository persists the administrative side channel.
type AuditLogRepository interface {
	// Write appends an audit log entry. Write-only by design.
	Write(ctx context.Context, entry *AuditLogEntry) error
}
