package queue

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// sweepInterval is how often expired jobs are pruned from the store.
const sweepInterval = time.Hour

// Store keeps capture jobs in memory. Every job carries its own expiry
// (ExpiresAt, set from the result TTL) and disappears once it passes,
// lazily on lookup or during the hourly sweep.
type Store struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	idempotency map[string]string // idempotency key -> job ID
	stop        chan struct{}
}

// NewStore creates a job store and starts its expiry sweeper.
func NewStore() *Store {
	s := &Store{
		jobs:        make(map[string]*Job),
		idempotency: make(map[string]string),
		stop:        make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *Store) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pruned := s.pruneExpired(); pruned > 0 {
				log.Printf("Pruned %d expired capture jobs", pruned)
			}
		case <-s.stop:
			return
		}
	}
}

// pruneExpired drops jobs past their result TTL together with their
// idempotency mappings. Returns the number of jobs removed.
func (s *Store) pruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, job := range s.jobs {
		if !job.IsExpired() {
			continue
		}
		if job.IdempotencyKey != "" {
			delete(s.idempotency, job.IdempotencyKey)
		}
		delete(s.jobs, id)
		pruned++
	}
	return pruned
}

// Stop stops the expiry sweeper.
func (s *Store) Stop() {
	close(s.stop)
}

// Save stores a job, registering its idempotency key when present.
func (s *Store) Save(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
	if job.IdempotencyKey != "" {
		s.idempotency[job.IdempotencyKey] = job.ID
	}
	return nil
}

// Get returns a job by ID. Expired jobs are reported as gone.
func (s *Store) Get(jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if job.IsExpired() {
		return nil, fmt.Errorf("job expired: %s", jobID)
	}
	return job, nil
}

// GetByIdempotencyKey returns the live job registered under key, if any.
func (s *Store) GetByIdempotencyKey(key string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobID, ok := s.idempotency[key]
	if !ok {
		return nil, false
	}

	job, ok := s.jobs[jobID]
	if !ok || job.IsExpired() {
		return nil, false
	}
	return job, true
}

// Update replaces a stored job.
func (s *Store) Update(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job not found: %s", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// Delete removes a job.
func (s *Store) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}
