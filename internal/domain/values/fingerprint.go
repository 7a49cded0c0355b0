package values

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// PayloadFingerprint is the canonical digest of a command's semantic content.
// Two submissions with the same command_id must carry the same fingerprint to
// count as an idempotent replay; a differing fingerprint is a conflict.
type PayloadFingerprint struct {
	digest string
}

// ComputeCommandFingerprint canonicalizes the command payload and digests it
// together with the command type and target evidence, so a replayed id cannot
// be pointed at a different target or body.
func ComputeCommandFingerprint(commandType, evidenceID string, payload []byte) (PayloadFingerprint, error) {
	if commandType == "" {
		return PayloadFingerprint{}, errors.NewValidationError("EMPTY_COMMAND_TYPE",
			"command type is required for fingerprinting")
	}

	canonical, err := canonicalizeJSON(payload)
	if err != nil {
		return PayloadFingerprint{}, errors.NewValidationError("INVALID_PAYLOAD",
			"payload must be valid JSON").WithCause(err)
	}

	envelope := map[string]any{
		"command_type": commandType,
		"evidence_id":  evidenceID,
		"payload":      json.RawMessage(canonical),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return PayloadFingerprint{}, errors.NewInternalError("failed to marshal fingerprint envelope").WithCause(err)
	}

	sum := sha256.Sum256(data)
	return PayloadFingerprint{digest: hex.EncodeToString(sum[:])}, nil
}

// FingerprintFromString restores a fingerprint previously obtained from String.
func FingerprintFromString(digest string) PayloadFingerprint {
	return PayloadFingerprint{digest: digest}
}

func (f PayloadFingerprint) String() string {
	return f.digest
}

func (f PayloadFingerprint) IsEmpty() bool {
	return f.digest == ""
}

func (f PayloadFingerprint) Equal(other PayloadFingerprint) bool {
	return f.digest == other.digest
}

// canonicalizeJSON re-marshals arbitrary JSON so that object keys come out in
// a deterministic order regardless of how the caller serialized the payload.
func canonicalizeJSON(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("null"), nil
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
