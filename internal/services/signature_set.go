package services

import "sync"

// SignatureSet is a fixed-capacity set of external transaction
// signatures that have already been converted into a bet or refund.
// It enforces at-most-once consumption of any single transfer within
// the recent polling window; when full, the oldest entry is evicted.
// Warm it from persisted records on startup so a restart cannot
// reprocess an already-consumed transfer.
type SignatureSet struct {
	mu       sync.Mutex
	capacity int
	ring     []string
	next     int
	index    map[string]struct{}
}

func NewSignatureSet(capacity int) *SignatureSet {
	if capacity <= 0 {
		capacity = 1024
	}
	return &SignatureSet{
		capacity: capacity,
		ring:     make([]string, capacity),
		index:    make(map[string]struct{}, capacity),
	}
}

// Contains reports whether a signature has already been consumed.
func (s *SignatureSet) Contains(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[signature]
	return ok
}

// Add records a signature, evicting the oldest entry when the set is
// at capacity.
func (s *SignatureSet) Add(signature string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[signature]; ok {
		return
	}

	if evicted := s.ring[s.next]; evicted != "" {
		delete(s.index, evicted)
	}
	s.ring[s.next] = signature
	s.index[signature] = struct{}{}
	s.next = (s.next + 1) % s.capacity
}

// Len returns the number of signatures currently held.
func (s *SignatureSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}
