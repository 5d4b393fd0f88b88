package security

import (
	"testing"
	"time"
)

func TestRateLimiterWindowLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstMax:          10,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Error("fourth request should be rejected")
	}

	// Other clients have their own window.
	if !rl.Allow("client-b") {
		t.Error("unrelated client should not be affected")
	}
}

func TestRateLimiterBurstLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstMax:          2,
	})

	if !rl.Allow("client") || !rl.Allow("client") {
		t.Fatal("requests within the burst cap should be allowed")
	}
	if rl.Allow("client") {
		t.Error("third request within one second should hit the burst cap")
	}
}

func TestRateLimiterRemainingAndReset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
		BurstMax:          5,
	})

	if got := rl.Remaining("client"); got != 5 {
		t.Errorf("fresh client remaining = %d, want 5", got)
	}

	rl.Allow("client")
	rl.Allow("client")

	if got := rl.Remaining("client"); got != 3 {
		t.Errorf("remaining after two requests = %d, want 3", got)
	}

	resetAt := rl.ResetAt("client")
	if until := time.Until(resetAt); until <= 0 || until > time.Minute {
		t.Errorf("reset should fall within the window, got %s from now", until)
	}

	rl.Reset("client")
	if got := rl.Remaining("client"); got != 5 {
		t.Errorf("remaining after reset = %d, want 5", got)
	}
}

func TestRateLimiterGetInfo(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstMax:          10,
	})

	rl.Allow("client")

	info := rl.GetInfo("client")
	if info.Limit != 10 {
		t.Errorf("info.Limit = %d, want 10", info.Limit)
	}
	if info.Remaining != 9 {
		t.Errorf("info.Remaining = %d, want 9", info.Remaining)
	}
	if info.ResetAt.Before(time.Now()) {
		t.Error("info.ResetAt should be in the future for an active client")
	}
}
