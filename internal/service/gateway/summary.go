package gateway

import (
	"sync"
	"time"
)

// RunSummary is the operator-facing tally served by the status endpoint.
// It is consumed, not produced, by the excluded UI layer.
type RunSummary struct {
	StartedAt         time.Time         `json:"started_at"`
	LastCommandAt     time.Time         `json:"last_command_at,omitempty"`
	Processed         uint64            `json:"processed"`
	Accepted          uint64            `json:"accepted"`
	IdempotentReplays uint64            `json:"idempotent_replays"`
	RejectedByCode    map[string]uint64 `json:"rejected_by_code"`
	ByCommandType     map[string]uint64 `json:"by_command_type"`
}

type summaryRecorder struct {
	mu      sync.Mutex
	summary RunSummary
}

func newSummaryRecorder() *summaryRecorder {
	return &summaryRecorder{
		summary: RunSummary{
			StartedAt:      time.Now().UTC(),
			RejectedByCode: make(map[string]uint64),
			ByCommandType:  make(map[string]uint64),
		},
	}
}

func (r *summaryRecorder) recordAccepted(commandType string, idempotent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Processed++
	r.summary.Accepted++
	if idempotent {
		r.summary.IdempotentReplays++
	}
	r.summary.ByCommandType[commandType]++
	r.summary.LastCommandAt = time.Now().UTC()
}

func (r *summaryRecorder) recordRejected(commandType, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Processed++
	r.summary.RejectedByCode[code]++
	if commandType != "" {
		r.summary.ByCommandType[commandType]++
	}
	r.summary.LastCommandAt = time.Now().UTC()
}

func (r *summaryRecorder) snapshot() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.summary
	out.RejectedByCode = make(map[string]uint64, len(r.summary.RejectedByCode))
	for k, v := range r.summary.RejectedByCode {
		out.RejectedByCode[k] = v
	}
	out.ByCommandType = make(map[string]uint64, len(r.summary.ByCommandType))
	for k, v := range r.summary.ByCommandType {
		out.ByCommandType[k] = v
	}
	return out
}
