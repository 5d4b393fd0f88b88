package api

import (
	"testing"
	"time"

	"github.com/artvision/snapvision/internal/queue"
)

func newTestJobHandler(config RouteConfig) *JobHandler {
	return NewJobHandlerWithConfig(nil, nil, config)
}

func TestPrepareRequestCapsTimeout(t *testing.T) {
	h := newTestJobHandler(RouteConfig{MaxJobTimeout: 2 * time.Minute})

	req := CreateJobRequest{Timeout: 900}
	h.prepareRequest(&req)

	if req.Timeout != 120 {
		t.Errorf("expected timeout capped at 120s, got %d", req.Timeout)
	}

	req = CreateJobRequest{Timeout: 30}
	h.prepareRequest(&req)

	if req.Timeout != 30 {
		t.Errorf("expected timeout kept at 30s, got %d", req.Timeout)
	}
}

func TestPrepareRequestDefaultsResultTTL(t *testing.T) {
	h := newTestJobHandler(RouteConfig{ResultTTL: time.Hour})

	req := CreateJobRequest{}
	h.prepareRequest(&req)

	if req.JobRequest.ResultTTL != 3600 {
		t.Errorf("expected default result TTL of 3600s, got %d", req.JobRequest.ResultTTL)
	}

	job := queue.NewJob(req.JobRequest)
	wantExpiry := time.Now().Add(time.Hour).Unix()
	if job.ExpiresAt < wantExpiry-5 || job.ExpiresAt > wantExpiry+5 {
		t.Errorf("expected job to expire around %d, got %d", wantExpiry, job.ExpiresAt)
	}

	req = CreateJobRequest{}
	req.JobRequest.ResultTTL = 60
	h.prepareRequest(&req)

	if req.JobRequest.ResultTTL != 60 {
		t.Errorf("expected client TTL kept at 60s, got %d", req.JobRequest.ResultTTL)
	}
}

func TestPrepareRequestBounds(t *testing.T) {
	h := newTestJobHandler(RouteConfig{})

	req := CreateJobRequest{Priority: 99, MaxRetries: 9}
	h.prepareRequest(&req)

	if req.Priority != 5 {
		t.Errorf("expected out-of-range priority reset to 5, got %d", req.Priority)
	}
	if req.MaxRetries != 5 {
		t.Errorf("expected retries capped at 5, got %d", req.MaxRetries)
	}

	req = CreateJobRequest{Priority: 8, MaxRetries: 2}
	h.prepareRequest(&req)

	if req.Priority != 8 || req.MaxRetries != 2 {
		t.Errorf("expected in-range values kept, got priority=%d retries=%d", req.Priority, req.MaxRetries)
	}
}

func TestValidateJobRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     queue.JobRequest
		wantErr bool
	}{
		{name: "capture needs url", req: queue.JobRequest{Type: queue.JobTypeCapture}, wantErr: true},
		{name: "capture with url", req: queue.JobRequest{Type: queue.JobTypeCapture, URL: "https://example.com"}},
		{name: "empty type defaults to capture", req: queue.JobRequest{URL: "https://example.com"}},
		{name: "serp needs query", req: queue.JobRequest{Type: queue.JobTypeSERP}, wantErr: true},
		{name: "serp batch needs queries", req: queue.JobRequest{Type: queue.JobTypeSERPBatch}, wantErr: true},
		{name: "batch needs urls", req: queue.JobRequest{Type: queue.JobTypeBatch}, wantErr: true},
		{name: "audit with urls", req: queue.JobRequest{Type: queue.JobTypeAudit, URLs: []string{"https://example.com"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJobRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateJobRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
