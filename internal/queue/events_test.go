package queue

import (
	"testing"
)

func TestEventHubSubscribeEmit(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()

	ch := hub.Subscribe("job_1")

	hub.Emit("job_1", Event{JobID: "job_1", Status: JobStatusRunning, Progress: 50})
	hub.Emit("job_2", Event{JobID: "job_2", Status: JobStatusRunning})

	event := <-ch
	if event.JobID != "job_1" || event.Progress != 50 {
		t.Errorf("unexpected event: %+v", event)
	}

	select {
	case extra := <-ch:
		t.Errorf("received event for another job: %+v", extra)
	default:
	}
}

func TestEventHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewEventHub()

	ch := hub.Subscribe("job_1")
	hub.Unsubscribe("job_1", ch)

	if _, open := <-ch; open {
		t.Error("expected channel closed after unsubscribe")
	}

	// Emitting after the last subscriber left must not panic
	hub.Emit("job_1", Event{JobID: "job_1", Status: JobStatusSucceeded})
}

func TestEventHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()

	ch := hub.Subscribe("job_1")

	for i := 0; i < eventBuffer+5; i++ {
		hub.Emit("job_1", Event{JobID: "job_1", Status: JobStatusRunning, Progress: i})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}

	if received != eventBuffer {
		t.Errorf("expected %d buffered events, got %d", eventBuffer, received)
	}
}

func TestStorePruneExpired(t *testing.T) {
	store := NewStore()
	defer store.Stop()

	expired := NewJob(JobRequest{URL: "https://example.com", IdempotencyKey: "key-1"})
	expired.ExpiresAt = 1
	if err := store.Save(expired); err != nil {
		t.Fatal(err)
	}

	live := NewJob(JobRequest{URL: "https://example.org"})
	if err := store.Save(live); err != nil {
		t.Fatal(err)
	}

	if pruned := store.pruneExpired(); pruned != 1 {
		t.Errorf("expected 1 pruned job, got %d", pruned)
	}

	if _, err := store.Get(expired.ID); err == nil {
		t.Error("expected expired job gone after prune")
	}
	if _, ok := store.GetByIdempotencyKey("key-1"); ok {
		t.Error("expected idempotency mapping gone after prune")
	}
	if _, err := store.Get(live.ID); err != nil {
		t.Errorf("live job lost: %v", err)
	}
}
