package idempotency

import (
	"context"
	"sync"
)

type memoryRecord struct {
	fingerprint string
	committed   bool
	result      StoredResult
}

// MemoryStore is a mutex-guarded in-process Store. It backs unit tests and
// single-node deployments; the Redis store provides the shared variant.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) key(tenantID, commandID string) string {
	return tenantID + "/" + commandID
}

// CheckOrReserve implements the atomic check-and-set under one lock hold.
func (s *MemoryStore) CheckOrReserve(_ context.Context, tenantID, commandID, fingerprint string) (CheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tenantID, commandID)
	rec, ok := s.records[key]
	if !ok {
		s.records[key] = &memoryRecord{fingerprint: fingerprint}
		return CheckResult{Status: StatusNew}, nil
	}

	if rec.fingerprint != fingerprint {
		res := rec.result
		out := CheckResult{Status: StatusConflict}
		if rec.committed {
			out.Previous = &res
		}
		return out, nil
	}

	if !rec.committed {
		return CheckResult{Status: StatusInFlight}, nil
	}

	res := rec.result
	return CheckResult{Status: StatusReplay, Previous: &res}, nil
}

func (s *MemoryStore) Commit(_ context.Context, tenantID, commandID string, result StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tenantID, commandID)
	rec, ok := s.records[key]
	if !ok {
		rec = &memoryRecord{fingerprint: result.Fingerprint}
		s.records[key] = rec
	}
	rec.committed = true
	rec.result = result
	return nil
}

func (s *MemoryStore) Release(_ context.Context, tenantID, commandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tenantID, commandID)
	if rec, ok := s.records[key]; ok && !rec.committed {
		delete(s.records, key)
	}
	return nil
}
