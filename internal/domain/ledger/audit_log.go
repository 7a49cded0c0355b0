package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is the side-channel record of administrative actions
// (contract creation, sweeper runs). It is written for operator traceability
// and never read by the state machine.
type AuditLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  string         `json:"tenant_id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	TargetID  string         `json:"target_id"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewAuditLogEntry records an administrative action.
func NewAuditLogEntry(tenantID, actorID, action, targetID string, detail map[string]any) *AuditLogEntry {
	return &AuditLogEntry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}
