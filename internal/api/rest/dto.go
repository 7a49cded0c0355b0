package rest

import (
	"encoding/json"
	"time"
)

// submitCommandRequest is the wire form of a command submission.
type submitCommandRequest struct {
	CommandID   string          `json:"command_id" validate:"required"`
	CommandType string          `json:"command_type" validate:"required"`
	TenantID    string          `json:"tenant_id" validate:"required"`
	EvidenceID  string          `json:"evidence_id" validate:"required"`
	ActorID     string          `json:"actor_id" validate:"required"`
	ActorRole   string          `json:"actor_role" validate:"required"`
	IssuedAt    time.Time       `json:"issued_at"`
	Payload     json.RawMessage `json:"payload"`
}

// commandResponse is the envelope for both accepted and rejected commands.
type commandResponse struct {
	Accepted       bool           `json:"accepted"`
	ResultingState string         `json:"resulting_state,omitempty"`
	Idempotent     bool           `json:"idempotent,omitempty"`
	EventID        string         `json:"event_id,omitempty"`
	ErrorCode      string         `json:"error_code,omitempty"`
	Detail         string         `json:"detail,omitempty"`
	ErrorDetails   map[string]any `json:"error_details,omitempty"`
}

// createContractRequest is the wire form of a contract declaration.
type createContractRequest struct {
	ContractID        string `json:"contract_id" validate:"required"`
	TenantID          string `json:"tenant_id" validate:"required"`
	EntityType        string `json:"entity_type" validate:"required,oneof=supplier facility product shipment"`
	IngestionPath     string `json:"ingestion_path" validate:"required"`
	AuthorityType     string `json:"authority_type" validate:"required,oneof=declarative supporting estimated"`
	DataScope         string `json:"data_scope"`
	RegulatoryContext string `json:"regulatory_context" validate:"required"`
	CreatedBy         string `json:"created_by" validate:"required"`
}

// registerEvidenceRequest is the wire form of an evidence upload record.
type registerEvidenceRequest struct {
	EvidenceID  string `json:"evidence_id" validate:"required"`
	TenantID    string `json:"tenant_id" validate:"required"`
	ContractID  string `json:"contract_id" validate:"required"`
	EntityType  string `json:"entity_type" validate:"required,oneof=supplier facility product shipment"`
	IntendedUse string `json:"intended_use"`
	SourceRole  string `json:"source_role"`
	FileHash    string `json:"file_hash" validate:"required,len=64,hexadecimal"`
	Fixture     bool   `json:"fixture"`
	ActorID     string `json:"actor_id" validate:"required"`
}

// errorResponse is the generic error envelope for non-command endpoints.
type errorResponse struct {
	ErrorCode string         `json:"error_code"`
	Detail    string         `json:"detail"`
	Details   map[string]any `json:"details,omitempty"`
}
