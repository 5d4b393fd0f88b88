package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStream naming for the capture job queue.
const (
	// StreamName is the work queue stream holding pending capture jobs.
	StreamName = "SNAP_JOBS"
	// SubjectName carries serialized jobs.
	SubjectName = "snap.jobs"
	// ConsumerName is the durable worker consumer.
	ConsumerName = "snap-worker"
)

// jobMaxAge bounds how long an unclaimed capture job stays queued. A
// screenshot taken a day late is worthless for monitoring.
const jobMaxAge = 24 * time.Hour

// Manager owns the capture job queue: the JetStream stream, the in-memory
// job store, and the event hub feeding SSE and websocket streams.
type Manager struct {
	js        jetstream.JetStream
	store     *Store
	events    *EventHub
	stream    jetstream.Stream
	consumer  jetstream.Consumer
	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a queue manager on an existing JetStream context.
func NewManager(js jetstream.JetStream) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		js:     js,
		store:  NewStore(),
		events: NewEventHub(),
		ctx:    ctx,
		cancel: cancel,
	}

	if err := m.setupStream(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup stream: %w", err)
	}

	return m, nil
}

// setupStream creates or updates the work queue stream and its durable
// consumer.
func (m *Manager) setupStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := m.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Snapvision capture job queue",
		Subjects:    []string{SubjectName},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      jobMaxAge,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	m.stream = stream

	// AckWait must outlast the longest capture scenario. A full SEO audit
	// with mobile shots can run minutes.
	consumer, err := m.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Name:          ConsumerName,
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    3,
		AckWait:       5 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	m.consumer = consumer

	return nil
}

// Start launches the capture worker loop. One job runs at a time so the
// browser is never shared between scenarios.
func (m *Manager) Start(processor JobProcessor) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = true
	m.mu.Unlock()

	log.Println("Starting capture job worker...")

	go func() {
		for {
			select {
			case <-m.ctx.Done():
				return
			default:
				msgs, err := m.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
				if err != nil {
					continue
				}

				for msg := range msgs.Messages() {
					m.processMessage(msg, processor)
				}
			}
		}
	}()

	return nil
}

// Stop stops the worker loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	m.cancel()
	m.isRunning = false
	log.Println("Capture job worker stopped")
}

// Enqueue saves a job and publishes it to the work queue.
func (m *Manager) Enqueue(job *Job) error {
	if err := m.store.Save(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.js.Publish(ctx, SubjectName, data); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	m.events.Emit(job.ID, Event{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job queued",
	})

	return nil
}

// EnqueueWithIdempotency enqueues a job unless its idempotency key already
// maps to a live one. Returns the effective job and whether it was a
// duplicate.
func (m *Manager) EnqueueWithIdempotency(job *Job) (*Job, bool, error) {
	if job.IdempotencyKey != "" {
		if existing, ok := m.store.GetByIdempotencyKey(job.IdempotencyKey); ok {
			return existing, true, nil
		}
	}

	if err := m.Enqueue(job); err != nil {
		return nil, false, err
	}

	return job, false, nil
}

// GetJob retrieves a job by ID.
func (m *Manager) GetJob(jobID string) (*Job, error) {
	return m.store.Get(jobID)
}

// UpdateJob updates a job and emits a progress event.
func (m *Manager) UpdateJob(job *Job) error {
	if err := m.store.Update(job); err != nil {
		return err
	}

	m.events.Emit(job.ID, Event{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
	})

	return nil
}

// CancelJob cancels a queued or running job. The worker checks the stored
// status before starting, so a canceled job is dropped when its message is
// delivered.
func (m *Manager) CancelJob(jobID string) (*Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != JobStatusQueued && job.Status != JobStatusRunning {
		return nil, fmt.Errorf("cannot cancel job with status: %s", job.Status)
	}

	job.SetStatus(JobStatusCanceled)
	if err := m.store.Update(job); err != nil {
		return nil, err
	}

	m.events.Emit(job.ID, Event{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job canceled",
	})

	return job, nil
}

// Subscribe subscribes to job events.
func (m *Manager) Subscribe(jobID string) <-chan Event {
	return m.events.Subscribe(jobID)
}

// Unsubscribe unsubscribes from job events.
func (m *Manager) Unsubscribe(jobID string, ch <-chan Event) {
	m.events.Unsubscribe(jobID, ch)
}

// GetEventHub returns the event hub.
func (m *Manager) GetEventHub() *EventHub {
	return m.events
}

// GetStore returns the job store.
func (m *Manager) GetStore() *Store {
	return m.store
}

// processMessage runs one delivered capture job through the processor.
func (m *Manager) processMessage(msg jetstream.Msg, processor JobProcessor) {
	job, err := FromJSON(msg.Data())
	if err != nil {
		log.Printf("Failed to decode queued job: %v", err)
		msg.Nak()
		return
	}

	// The store holds the authoritative copy; the message may be stale
	// after a cancel or a retry.
	stored, err := m.store.Get(job.ID)
	if err != nil {
		log.Printf("Queued job %s has no stored state: %v", job.ID, err)
		msg.Nak()
		return
	}

	if stored.Status == JobStatusCanceled {
		msg.Ack()
		return
	}

	if delay, waiting := retryDelay(stored); waiting {
		msg.NakWithDelay(delay)
		return
	}

	stored.SetStatus(JobStatusRunning)
	stored.SetProgress(0, "Processing started")
	m.UpdateJob(stored)

	ctx, cancel := context.WithTimeout(m.ctx, stored.GetTimeoutDuration())
	defer cancel()

	result, err := processor.Process(ctx, stored, func(progress int, message string) {
		stored.SetProgress(progress, message)
		m.UpdateJob(stored)
	})
	if err != nil {
		m.handleFailure(stored, err)
		msg.Ack()
		return
	}

	stored.SetResult(result)
	m.UpdateJob(stored)
	msg.Ack()
}

// retryDelay reports how long a retrying job still has to wait.
func retryDelay(job *Job) (time.Duration, bool) {
	if job.Status != JobStatusRetrying || job.NextRetryAt <= 0 {
		return 0, false
	}

	until := time.Unix(job.NextRetryAt, 0)
	if time.Now().Before(until) {
		return time.Until(until), true
	}
	return 0, false
}

// handleFailure re-enqueues the job when retries remain, otherwise marks
// it failed.
func (m *Manager) handleFailure(job *Job, cause error) {
	if !job.CanRetry() {
		job.SetError(cause.Error())
		m.UpdateJob(job)
		return
	}

	job.LastError = cause.Error()
	job.PrepareRetry()
	m.UpdateJob(job)

	m.events.Emit(job.ID, Event{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  fmt.Sprintf("Retrying (%d/%d): %s", job.RetryCount, job.MaxRetries, cause.Error()),
	})

	data, err := job.ToJSON()
	if err != nil {
		log.Printf("Failed to serialize job %s for retry: %v", job.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.js.Publish(ctx, SubjectName, data); err != nil {
		log.Printf("Failed to re-enqueue job %s for retry: %v", job.ID, err)
	}
}
