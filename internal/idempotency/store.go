package idempotency

import (
	"context"
	"time"
)

// Status classifies the outcome of a check-and-reserve.
type Status string

const (
	// StatusNew means the command_id was unseen and is now reserved for
	// this caller; exactly one caller per command_id observes StatusNew.
	StatusNew Status = "new"
	// StatusInFlight means another caller holds the reservation and has
	// not committed yet.
	StatusInFlight Status = "in_flight"
	// StatusReplay means the command_id was already applied with the same
	// payload fingerprint; Previous carries the original result.
	StatusReplay Status = "replay_match"
	// StatusConflict means the command_id was seen before with a different
	// payload fingerprint.
	StatusConflict Status = "replay_conflict"
)

// StoredResult is the durable record of a previously applied command.
type StoredResult struct {
	CommandID      string    `json:"command_id"`
	Fingerprint    string    `json:"fingerprint"`
	EvidenceID     string    `json:"evidence_id"`
	ResultingState string    `json:"resulting_state"`
	EventID        string    `json:"event_id"`
	AppliedAt      time.Time `json:"applied_at"`
}

// CheckResult is the outcome of CheckOrReserve.
type CheckResult struct {
	Status   Status
	Previous *StoredResult
}

// Store is the durable command_id -> result map consulted atomically before
// every mutation. CheckOrReserve must behave as a single check-and-set even
// when the same command_id races in from duplicate network retries: at most
// one caller ever sees StatusNew for a given (tenant, command_id).
type Store interface {
	CheckOrReserve(ctx context.Context, tenantID, commandID, fingerprint string) (CheckResult, error)

	// Commit records the applied result under the reservation.
	Commit(ctx context.Context, tenantID, commandID string, result StoredResult) error

	// Release frees a reservation whose command was rejected. Rejections
	// are non-mutating, so a later retry with the same id must be allowed
	// to run fresh.
	Release(ctx context.Context, tenantID, commandID string) error
}
