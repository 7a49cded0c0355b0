package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

func testCommand(commandID string) *evidence.Command {
	return &evidence.Command{
		CommandID:   commandID,
		CommandType: evidence.CommandClassifyEvidence,
		TenantID:    "T1",
		EvidenceID:  "E1",
		ActorID:     "user-1",
		ActorRole:   "compliance_officer",
	}
}

func sealedEvent(t *testing.T, commandID string, seq uint64, previousHash string) *Event {
	t.Helper()
	ev, err := NewEvent(testCommand(commandID), evidence.StateClassified)
	require.NoError(t, err)
	ev.SequenceNum = values.MustNewSequenceNumber(seq)
	_, err = ev.ComputeHash(previousHash)
	require.NoError(t, err)
	return ev
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(testCommand("X1"), evidence.StateClassified)
	require.NoError(t, err)
	assert.Equal(t, "X1", ev.CommandID)
	assert.Equal(t, evidence.StateClassified, ev.ResultingState)
	assert.NotEqual(t, ev.EventID.String(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, ev.SequenceNum.IsZero(), "sequence is assigned at append time")
	assert.Empty(t, ev.EventHash)

	_, err = NewEvent(testCommand(""), evidence.StateClassified)
	require.Error(t, err)

	_, err = NewEvent(testCommand("X1"), "")
	require.Error(t, err)
}

func TestComputeHash(t *testing.T) {
	ev, err := NewEvent(testCommand("X1"), evidence.StateClassified)
	require.NoError(t, err)

	// Unsequenced events cannot be sealed.
	_, err = ev.ComputeHash("")
	require.Error(t, err)

	ev.SequenceNum = values.MustNewSequenceNumber(1)
	h1, err := ev.ComputeHash("")
	require.NoError(t, err)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, ev.EventHash)

	// Hashing is deterministic over the sealed fields.
	h2, err := ev.ComputeHash("")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// A different predecessor yields a different seal.
	h3, err := ev.ComputeHash(h1)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, h1, ev.PreviousHash)
}

func TestVerifyChain_Intact(t *testing.T) {
	e1 := sealedEvent(t, "X1", 1, "")
	e2 := sealedEvent(t, "X2", 2, e1.EventHash)
	e3 := sealedEvent(t, "X3", 3, e2.EventHash)

	assert.Empty(t, VerifyChain([]*Event{e1, e2, e3}))
	assert.Empty(t, VerifyChain(nil))
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	e1 := sealedEvent(t, "X1", 1, "")
	e2 := sealedEvent(t, "X2", 2, e1.EventHash)

	// Rewriting a sealed field breaks the stored hash.
	e1.ResultingState = evidence.StateStructured
	breaks := VerifyChain([]*Event{e1, e2})
	require.NotEmpty(t, breaks)
	assert.Equal(t, e1.EventID.String(), breaks[0].EventID)
}

func TestVerifyChain_DetectsBrokenLinkage(t *testing.T) {
	e1 := sealedEvent(t, "X1", 1, "")
	// e2 sealed against a forged predecessor.
	e2 := sealedEvent(t, "X2", 2, "deadbeef")

	breaks := VerifyChain([]*Event{e1, e2})
	require.NotEmpty(t, breaks)
	assert.Equal(t, e2.EventID.String(), breaks[0].EventID)
	assert.Equal(t, e1.EventHash, breaks[0].ExpectedHash)
}

func TestVerifyChain_DetectsDroppedEvent(t *testing.T) {
	e1 := sealedEvent(t, "X1", 1, "")
	e2 := sealedEvent(t, "X2", 2, e1.EventHash)
	e3 := sealedEvent(t, "X3", 3, e2.EventHash)

	// Removing the middle event breaks e3's linkage.
	breaks := VerifyChain([]*Event{e1, e3})
	require.NotEmpty(t, breaks)
	assert.Equal(t, e3.EventID.String(), breaks[0].EventID)
}
