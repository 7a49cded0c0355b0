package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

// Event is the append-only record of one accepted command. Exactly one event
// exists per distinct accepted command_id; events are created, never updated
// or deleted. Each event chains to its tenant predecessor by hash.
type Event struct {
	EventID        uuid.UUID             `json:"event_id"`
	SequenceNum    values.SequenceNumber `json:"sequence_num"`
	CommandID      string                `json:"command_id"`
	CommandType    evidence.CommandType  `json:"command_type"`
	TenantID       string                `json:"tenant_id"`
	EvidenceID     string                `json:"evidence_id"`
	ActorID        string                `json:"actor_id"`
	ResultingState evidence.State        `json:"resulting_state"`
	AppliedAt      time.Time             `json:"applied_at"`

	PreviousHash string `json:"previous_hash"`
	EventHash    string `json:"event_hash"`
}

// NewEvent creates a ledger event for an accepted command. Sequence number
// and hash chain are assigned at append time by the repository.
func NewEvent(cmd *evidence.Command, resultingState evidence.State) (*Event, error) {
	if cmd.CommandID == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"command_id is required")
	}
	if resultingState == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"resulting_state is required")
	}

	return &Event{
		EventID:        uuid.New(),
		CommandID:      cmd.CommandID,
		CommandType:    cmd.CommandType,
		TenantID:       cmd.TenantID,
		EvidenceID:     cmd.EvidenceID,
		ActorID:        cmd.ActorID,
		ResultingState: resultingState,
		AppliedAt:      time.Now().UTC(),
	}, nil
}

// ComputeHash seals the event into the tenant chain. Only fields that affect
// audit integrity participate in the digest.
func (e *Event) ComputeHash(previousHash string) (string, error) {
	if e.SequenceNum.IsZero() {
		return "", errors.NewValidationError("UNSEQUENCED_EVENT",
			"sequence number must be assigned before hashing")
	}

	e.PreviousHash = previousHash

	hashData := map[string]any{
		"event_id":        e.EventID.String(),
		"sequence_num":    e.SequenceNum.Value(),
		"command_id":      e.CommandID,
		"command_type":    string(e.CommandType),
		"tenant_id":       e.TenantID,
		"evidence_id":     e.EvidenceID,
		"resulting_state": string(e.ResultingState),
		"applied_at":      e.AppliedAt.UnixNano(),
		"previous_hash":   e.PreviousHash,
	}

	jsonBytes, err := json.Marshal(hashData)
	if err != nil {
		return "", errors.NewInternalError("failed to marshal hash data").WithCause(err)
	}

	sum := sha256.Sum256(jsonBytes)
	e.EventHash = hex.EncodeToString(sum[:])
	return e.EventHash, nil
}
