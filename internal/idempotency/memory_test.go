package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReserveCommitReplay(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	check, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, check.Status)

	// Same fingerprint while uncommitted: in flight.
	check, err = s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInFlight, check.Status)

	result := StoredResult{
		CommandID:      "X1",
		Fingerprint:    "fp-1",
		EvidenceID:     "E1",
		ResultingState: "CLASSIFIED",
		EventID:        "ev-1",
		AppliedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.Commit(ctx, "T1", "X1", result))

	check, err = s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusReplay, check.Status)
	require.NotNil(t, check.Previous)
	assert.Equal(t, "E1", check.Previous.EvidenceID)
	assert.Equal(t, "ev-1", check.Previous.EventID)
}

func TestMemoryStore_Conflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)

	// Conflicting fingerprint against an uncommitted reservation carries no
	// previous result.
	check, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-2")
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, check.Status)
	assert.Nil(t, check.Previous)

	require.NoError(t, s.Commit(ctx, "T1", "X1", StoredResult{
		CommandID: "X1", Fingerprint: "fp-1", EvidenceID: "E1",
	}))

	// After commit the conflict exposes the applied result for reconciliation.
	check, err = s.CheckOrReserve(ctx, "T1", "X1", "fp-2")
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, check.Status)
	require.NotNil(t, check.Previous)
	assert.Equal(t, "E1", check.Previous.EvidenceID)
}

func TestMemoryStore_ReleaseFreesOnlyUncommitted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "T1", "X1"))

	// Released reservation can be taken again.
	check, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, check.Status)

	require.NoError(t, s.Commit(ctx, "T1", "X1", StoredResult{
		CommandID: "X1", Fingerprint: "fp-1",
	}))

	// Release never evicts a committed result.
	require.NoError(t, s.Release(ctx, "T1", "X1"))
	check, err = s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusReplay, check.Status)
}

func TestMemoryStore_TenantsAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	check, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, check.Status)

	// Same command_id under a different tenant is an independent key.
	check, err = s.CheckOrReserve(ctx, "T2", "X1", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, check.Status)
}

func TestMemoryStore_ConcurrentReserve(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	statuses := make([]Status, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			check, err := s.CheckOrReserve(ctx, "T1", "X1", "fp-1")
			require.NoError(t, err)
			statuses[i] = check.Status
		}(i)
	}
	wg.Wait()

	newCount := 0
	for _, st := range statuses {
		switch st {
		case StatusNew:
			newCount++
		case StatusInFlight:
		default:
			t.Fatalf("unexpected status %q", st)
		}
	}
	assert.Equal(t, 1, newCount, "exactly one caller wins the reservation")
}
