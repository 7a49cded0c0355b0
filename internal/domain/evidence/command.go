package evidence

import (
	"encoding/json"
	"time"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// CommandType discriminates the mutation a command requests.
type CommandType string

const (
	CommandClassifyEvidence     CommandType = "ClassifyEvidenceCommand"
	CommandApproveStructuring   CommandType = "ApproveStructuringCommand"
	CommandUnquarantineEvidence CommandType = "UnquarantineEvidenceCommand"
)

// Command is the immutable mutation request submitted to the gateway.
// CommandID is the idempotency key: globally unique per tenant, and the unit
// of at-most-one-effective-application.
type Command struct {
	CommandID   string          `json:"command_id"`
	CommandType CommandType     `json:"command_type"`
	TenantID    string          `json:"tenant_id"`
	EvidenceID  string          `json:"evidence_id"`
	ActorID     string          `json:"actor_id"`
	ActorRole   string          `json:"actor_role"`
	IssuedAt    time.Time       `json:"issued_at"`
	Payload     json.RawMessage `json:"payload"`
}

// ClassifyPayload is the payload schema for ClassifyEvidenceCommand.
type ClassifyPayload struct {
	EvidenceType      string   `json:"evidence_type"`
	ClaimedScope      string   `json:"claimed_scope"`
	ClaimedFrameworks []string `json:"claimed_frameworks"`
	ClassifierRole    string   `json:"classifier_role"`
	Confidence        float64  `json:"confidence"`
}

// StructuringPayload is the payload schema for ApproveStructuringCommand.
type StructuringPayload struct {
	SchemaType       string           `json:"schema_type"`
	SchemaVersion    string           `json:"schema_version"`
	ExtractedFields  map[string]any   `json:"extracted_fields"`
	ExtractionSource ExtractionSource `json:"extraction_source"`
	ApproverRole     string           `json:"approver_role,omitempty"`
}

// Validate checks the command envelope. Payload schemas are validated when
// the transition decodes them.
func (c *Command) Validate() error {
	if c.CommandID == "" {
		return errors.NewValidationError(errors.CodeValidationError,
			"command_id is required")
	}
	switch c.CommandType {
	case CommandClassifyEvidence, CommandApproveStructuring, CommandUnquarantineEvidence:
	case "":
		return errors.NewValidationError(errors.CodeValidationError,
			"command_type is required")
	default:
		return errors.NewValidationError(errors.CodeValidationError,
			"unknown command_type: "+string(c.CommandType))
	}
	if c.TenantID == "" {
		return errors.NewValidationError(errors.CodeValidationError,
			"tenant_id is required")
	}
	if c.EvidenceID == "" {
		return errors.NewValidationError(errors.CodeValidationError,
			"evidence_id is required")
	}
	if c.ActorID == "" {
		return errors.NewValidationError(errors.CodeValidationError,
			"actor_id is required")
	}
	if c.ActorRole == "" {
		return errors.NewValidationError(errors.CodeValidationError,
			"actor_role is required")
	}
	return nil
}

// Fingerprint digests the command's semantic content for replay comparison.
func (c *Command) Fingerprint() (values.PayloadFingerprint, error) {
	return values.ComputeCommandFingerprint(string(c.CommandType), c.EvidenceID, c.Payload)
}

// DecodeClassifyPayload decodes and validates a classification payload.
func (c *Command) DecodeClassifyPayload() (*ClassifyPayload, error) {
	var p ClassifyPayload
	if err := json.Unmarshal(c.Payload, &p); err != nil {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"malformed classification payload").WithCause(err)
	}
	if p.EvidenceType == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"evidence_type is required in classification payload")
	}
	if p.ClassifierRole == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"classifier_role is required in classification payload")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"confidence must be within [0, 1]")
	}
	return &p, nil
}

// DecodeStructuringPayload decodes and validates a structuring payload.
func (c *Command) DecodeStructuringPayload() (*StructuringPayload, error) {
	var p StructuringPayload
	if err := json.Unmarshal(c.Payload, &p); err != nil {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"malformed structuring payload").WithCause(err)
	}
	if p.SchemaType == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"schema_type is required in structuring payload")
	}
	switch p.ExtractionSource {
	case SourceHuman, SourceAISuggestion, SourceOCRPipeline:
	case "":
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"extraction_source is required in structuring payload")
	default:
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"unknown extraction_source: "+string(p.ExtractionSource))
	}
	return &p, nil
}
