package values

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// FileHash is the content-addressed identity of an uploaded evidence file:
// a hex-encoded SHA-256 digest.
type FileHash struct {
	hash string
}

var sha256HexRegex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// NewFileHash creates a FileHash value object with validation.
func NewFileHash(hash string) (FileHash, error) {
	if hash == "" {
		return FileHash{}, errors.NewValidationError("EMPTY_HASH",
			"file hash cannot be empty")
	}

	normalized := strings.ToLower(strings.TrimSpace(hash))
	if !sha256HexRegex.MatchString(normalized) {
		return FileHash{}, errors.NewValidationError("INVALID_HASH_FORMAT",
			"file hash must be a 64-character hexadecimal string (SHA-256)")
	}

	return FileHash{hash: normalized}, nil
}

// ComputeFileHash computes the SHA-256 content address for raw file bytes.
func ComputeFileHash(data []byte) (FileHash, error) {
	if len(data) == 0 {
		return FileHash{}, errors.NewValidationError("EMPTY_DATA",
			"data to hash cannot be empty")
	}

	sum := sha256.Sum256(data)
	return FileHash{hash: hex.EncodeToString(sum[:])}, nil
}

// MustNewFileHash creates a FileHash and panics on error (for tests).
func MustNewFileHash(hash string) FileHash {
	h, err := NewFileHash(hash)
	if err != nil {
		panic(err)
	}
	return h
}

// String returns the hex-encoded hash.
func (h FileHash) String() string {
	return h.hash
}

// IsEmpty checks if the hash is empty.
func (h FileHash) IsEmpty() bool {
	return h.hash == ""
}

// Equal checks if two FileHash objects are equal.
func (h FileHash) Equal(other FileHash) bool {
	return h.hash == other.hash
}

// MarshalJSON implements JSON serialization.
func (h FileHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.hash)
}

// UnmarshalJSON implements JSON deserialization with validation.
func (h *FileHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = FileHash{}
		return nil
	}
	parsed, err := NewFileHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
