package values

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// SequenceNumber represents a per-tenant monotonic position in the ledger.
type SequenceNumber struct {
	value uint64
}

const (
	// Maximum sequence number value (2^63 - 1 for safe database storage)
	MaxSequenceNumber = uint64(9223372036854775807)
	// Minimum sequence number value
	MinSequenceNumber = uint64(1)
)

// NewSequenceNumber creates a SequenceNumber value object with validation.
func NewSequenceNumber(value uint64) (SequenceNumber, error) {
	if value == 0 {
		return SequenceNumber{}, errors.NewValidationError("ZERO_SEQUENCE",
			"sequence number cannot be zero")
	}

	if value > MaxSequenceNumber {
		return SequenceNumber{}, errors.NewValidationError("SEQUENCE_TOO_LARGE",
			fmt.Sprintf("sequence number %d exceeds maximum %d", value, MaxSequenceNumber))
	}

	return SequenceNumber{value: value}, nil
}

// MustNewSequenceNumber creates a SequenceNumber and panics on error (for tests).
func MustNewSequenceNumber(value uint64) SequenceNumber {
	seq, err := NewSequenceNumber(value)
	if err != nil {
		panic(err)
	}
	return seq
}

// First returns the initial sequence number.
func First() SequenceNumber {
	return SequenceNumber{value: MinSequenceNumber}
}

// Next returns the following sequence number.
func (s SequenceNumber) Next() (SequenceNumber, error) {
	if s.value >= MaxSequenceNumber {
		return SequenceNumber{}, errors.NewValidationError("SEQUENCE_OVERFLOW",
			"sequence number overflow")
	}
	return SequenceNumber{value: s.value + 1}, nil
}

// Value returns the numeric value.
func (s SequenceNumber) Value() uint64 {
	return s.value
}

// IsZero reports whether the sequence number is unset.
func (s SequenceNumber) IsZero() bool {
	return s.value == 0
}

// Before reports strict ordering against another sequence number.
func (s SequenceNumber) Before(other SequenceNumber) bool {
	return s.value < other.value
}

func (s SequenceNumber) String() string {
	return strconv.FormatUint(s.value, 10)
}

// MarshalJSON implements JSON serialization.
func (s SequenceNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

// UnmarshalJSON implements JSON deserialization. Zero is accepted so that
// not-yet-appended events round-trip.
func (s *SequenceNumber) UnmarshalJSON(data []byte) error {
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v > MaxSequenceNumber {
		return errors.NewValidationError("SEQUENCE_TOO_LARGE",
			fmt.Sprintf("sequence number %d exceeds maximum %d", v, MaxSequenceNumber))
	}
	s.value = v
	return nil
}
