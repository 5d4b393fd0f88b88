package security

import (
	"testing"
	"time"
)

func TestIdempotencyStoreReplay(t *testing.T) {
	store := NewIdempotencyStore(time.Hour)

	if _, ok := store.Check("batch-2026"); ok {
		t.Fatal("unknown key should miss")
	}

	store.Store("batch-2026", "job_abc", map[string]string{"job_id": "job_abc"})

	entry, ok := store.Check("batch-2026")
	if !ok {
		t.Fatal("stored key should hit")
	}
	if entry.JobID != "job_abc" {
		t.Errorf("entry.JobID = %q, want job_abc", entry.JobID)
	}

	store.Delete("batch-2026")
	if _, ok := store.Check("batch-2026"); ok {
		t.Error("deleted key should miss")
	}
}

func TestIdempotencyStoreExpiry(t *testing.T) {
	store := NewIdempotencyStore(-time.Second)

	store.Store("stale", "job_old", nil)

	if _, ok := store.Check("stale"); ok {
		t.Error("expired entry should not be returned")
	}
}
