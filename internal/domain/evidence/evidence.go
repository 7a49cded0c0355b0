package evidence

import (
	"time"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// State is the lifecycle state of an evidence record. State only ever
// advances RAW -> CLASSIFIED -> STRUCTURED; STRUCTURED is terminal for the
// happy path. QUARANTINED is a parallel flag applied by the sweeper, never a
// state-machine transition, and is terminal for mutation purposes.
type State string

const (
	StateRaw         State = "RAW"
	StateClassified  State = "CLASSIFIED"
	StateStructured  State = "STRUCTURED"
	StateQuarantined State = "QUARANTINED"
)

// ExtractionSource tags the provenance of structured field values. AI output
// is an opaque, distrusted input; the tag is what the authorization gate
// keys its human-approver rule on.
type ExtractionSource string

const (
	SourceHuman        ExtractionSource = "human"
	SourceAISuggestion ExtractionSource = "ai_suggestion"
	SourceOCRPipeline  ExtractionSource = "ocr_pipeline"
)

// IsHumanOrigin reports whether the source is a human operator.
func (s ExtractionSource) IsHumanOrigin() bool {
	return s == SourceHuman
}

// DeclaredContext is what the uploader asserted about the document at
// upload time, before any classification ran.
type DeclaredContext struct {
	EntityType  contract.EntityType `json:"entity_type"`
	IntendedUse string              `json:"intended_use"`
	SourceRole  string              `json:"source_role"`
}

// Classification holds fields populated at or after CLASSIFIED.
type Classification struct {
	EvidenceType      string   `json:"evidence_type"`
	ClaimedScope      string   `json:"claimed_scope"`
	ClaimedFrameworks []string `json:"claimed_frameworks"`
	ClassifierRole    string   `json:"classifier_role"`
	Confidence        float64  `json:"confidence"`
}

// Structuring holds fields populated at or after STRUCTURED.
type Structuring struct {
	SchemaType       string           `json:"schema_type"`
	SchemaVersion    string           `json:"schema_version"`
	ExtractedFields  map[string]any   `json:"extracted_fields"`
	ExtractionSource ExtractionSource `json:"extraction_source"`
	ApproverRole     string           `json:"approver_role,omitempty"`
}

// Evidence is a compliance document moving through the ingestion lifecycle.
// It is mutated exclusively through the command gateway.
type Evidence struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	ContractID string          `json:"contract_id"`
	State      State           `json:"state"`
	Declared   DeclaredContext `json:"declared_context"`
	FileHash   values.FileHash `json:"file_hash"`

	Classification *Classification `json:"classification,omitempty"`
	Structuring    *Structuring    `json:"structuring,omitempty"`

	// Fixture marks test/sample uploads subject to retention sweeping.
	Fixture bool `json:"fixture,omitempty"`

	Quarantined      bool       `json:"quarantined"`
	QuarantineReason string     `json:"quarantine_reason,omitempty"`
	QuarantinedAt    *time.Time `json:"quarantined_at,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Version supports optimistic concurrency on update.
	Version int64 `json:"version"`
}

// NewEvidence creates evidence in RAW referencing its governing contract.
func NewEvidence(id, tenantID, contractID string, declared DeclaredContext, fileHash values.FileHash) (*Evidence, error) {
	if id == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"evidence id is required")
	}
	if tenantID == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"tenant_id is required")
	}
	if contractID == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"contract_id is required")
	}
	if declared.EntityType == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"declared entity_type is required")
	}
	if fileHash.IsEmpty() {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"file_hash is required")
	}

	now := time.Now().UTC()
	return &Evidence{
		ID:         id,
		TenantID:   tenantID,
		ContractID: contractID,
		State:      StateRaw,
		Declared:   declared,
		FileHash:   fileHash,
		UploadedAt: now,
		UpdatedAt:  now,
		Version:    1,
	}, nil
}

// EffectiveState is the state reported to callers: the quarantine flag
// shadows the underlying lifecycle state without rewriting it.
func (e *Evidence) EffectiveState() State {
	if e.Quarantined {
		return StateQuarantined
	}
	return e.State
}

// MarkQuarantined sets the additive quarantine flag. Idempotent: re-marking
// already-quarantined evidence keeps the original reason and timestamp.
func (e *Evidence) MarkQuarantined(reason string, at time.Time) {
	if e.Quarantined {
		return
	}
	e.Quarantined = true
	e.QuarantineReason = reason
	t := at.UTC()
	e.QuarantinedAt = &t
}

// Clone returns a deep copy, so repository reads never alias live rows.
func (e *Evidence) Clone() *Evidence {
	clone := *e
	if e.Classification != nil {
		c := *e.Classification
		if e.Classification.ClaimedFrameworks != nil {
			c.ClaimedFrameworks = make([]string, len(e.Classification.ClaimedFrameworks))
			copy(c.ClaimedFrameworks, e.Classification.ClaimedFrameworks)
		}
		clone.Classification = &c
	}
	if e.Structuring != nil {
		s := *e.Structuring
		if e.Structuring.ExtractedFields != nil {
			s.ExtractedFields = make(map[string]any, len(e.Structuring.ExtractedFields))
			for k, v := range e.Structuring.ExtractedFields {
				s.ExtractedFields[k] = v
			}
		}
		clone.Structuring = &s
	}
	if e.QuarantinedAt != nil {
		t := *e.QuarantinedAt
		clone.QuarantinedAt = &t
	}
	return &clone
}
