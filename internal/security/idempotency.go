package security

import (
	"sync"
	"time"
)

// idempotencySweep is how often expired keys are discarded.
const idempotencySweep = 5 * time.Minute

// IdempotencyStore remembers responses by client-chosen key, so a retried
// POST /snap/jobs replays the original response instead of enqueuing the
// same capture batch again.
type IdempotencyStore struct {
	mu   sync.RWMutex
	keys map[string]*IdempotencyEntry
	ttl  time.Duration
}

// IdempotencyEntry is one remembered response.
type IdempotencyEntry struct {
	Key       string      `json:"key"`
	JobID     string      `json:"job_id"`
	Response  interface{} `json:"response"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewIdempotencyStore creates a store whose entries live for ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	s := &IdempotencyStore{
		keys: make(map[string]*IdempotencyEntry),
		ttl:  ttl,
	}

	go s.sweep()

	return s
}

// Check returns the remembered entry for key, if it is still live.
func (s *IdempotencyStore) Check(key string) (*IdempotencyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.keys[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry, true
}

// Store remembers the response returned for key.
func (s *IdempotencyStore) Store(key, jobID string, response interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.keys[key] = &IdempotencyEntry{
		Key:       key,
		JobID:     jobID,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
}

// Delete forgets a key.
func (s *IdempotencyStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *IdempotencyStore) sweep() {
	ticker := time.NewTicker(idempotencySweep)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for key, entry := range s.keys {
			if now.After(entry.ExpiresAt) {
				delete(s.keys, key)
			}
		}
		s.mu.Unlock()
	}
}
