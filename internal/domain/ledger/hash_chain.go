package ledger

import (
	"fmt"
)

// ChainBreak describes one detected integrity failure in a tenant chain.
type ChainBreak struct {
	EventID      string `json:"event_id"`
	SequenceNum  uint64 `json:"sequence_num"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Description  string `json:"description"`
}

// VerifyChain walks a tenant's events in append order and re-derives the hash
// chain, reporting every break. Used for replay and proof generation.
func VerifyChain(events []*Event) []*ChainBreak {
	var breaks []*ChainBreak
	previousHash := ""

	for i, ev := range events {
		if ev.PreviousHash != previousHash {
			breaks = append(breaks, &ChainBreak{
				EventID:      ev.EventID.String(),
				SequenceNum:  ev.SequenceNum.Value(),
				ExpectedHash: previousHash,
				ActualHash:   ev.PreviousHash,
				Description:  fmt.Sprintf("event %d does not chain to its predecessor", i),
			})
		}

		recomputed := ev.EventHash
		probe := *ev
		if h, err := probe.ComputeHash(ev.PreviousHash); err == nil {
			recomputed = h
		}
		if recomputed != ev.EventHash {
			breaks = append(breaks, &ChainBreak{
				EventID:      ev.EventID.String(),
				SequenceNum:  ev.SequenceNum.Value(),
				ExpectedHash: recomputed,
				ActualHash:   ev.EventHash,
				Description:  "stored event hash does not match recomputed hash",
			})
		}

		previousHash = ev.EventHash
	}

	return breaks
}
