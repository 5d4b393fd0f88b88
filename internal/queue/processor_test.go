package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/capture"
)

type stubBrowser struct {
	err error
}

func (s *stubBrowser) IsRunning() bool     { return true }
func (s *stubBrowser) GetEndpoint() string { return "ws://127.0.0.1:9222" }

func (s *stubBrowser) Capture(ctx context.Context, url string, opts browser.CaptureOptions) (*browser.CaptureResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &browser.CaptureResult{
		Data:   []byte("image"),
		Title:  "Page",
		Width:  opts.Width,
		Height: 2000,
	}, nil
}

func (s *stubBrowser) GetPageInfo(ctx context.Context, url string, opts browser.PageOptions) (*browser.PageInfo, error) {
	return &browser.PageInfo{URL: url, Title: "Page"}, nil
}

func newTestProcessor(t *testing.T, client browser.Client) *CaptureProcessor {
	t.Helper()
	service := capture.NewService(client, t.TempDir(), 5*time.Second, 90)
	return NewCaptureProcessor(service)
}

func TestProcessCaptureJob(t *testing.T) {
	processor := newTestProcessor(t, &stubBrowser{})

	job := NewJob(JobRequest{Type: JobTypeCapture, URL: "https://example.com"})
	var lastPct int
	var lastMsg string

	result, err := processor.Process(context.Background(), job, func(pct int, msg string) {
		lastPct = pct
		lastMsg = msg
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	captureResult, ok := result.(*capture.Result)
	if !ok {
		t.Fatalf("expected *capture.Result, got %T", result)
	}
	if !captureResult.Success {
		t.Errorf("expected successful capture")
	}

	if lastPct != 100 {
		t.Errorf("expected final progress 100, got %d", lastPct)
	}
	if lastMsg == "" {
		t.Errorf("expected final progress message")
	}
	if job.ProgressInfo == nil || job.ProgressInfo.Stage != "completed" {
		t.Errorf("expected completed stage")
	}
}

func TestProcessCaptureJobFailure(t *testing.T) {
	processor := newTestProcessor(t, &stubBrowser{err: errors.New("net::ERR_NAME_NOT_RESOLVED")})

	job := NewJob(JobRequest{Type: JobTypeCapture, URL: "https://nope.invalid"})

	_, err := processor.Process(context.Background(), job, func(int, string) {})
	if err == nil {
		t.Fatalf("expected error for failed capture")
	}
	if !strings.Contains(err.Error(), "ERR_NAME_NOT_RESOLVED") {
		t.Errorf("expected browser error in %v", err)
	}
}

func TestProcessBatchJobRecordsFailures(t *testing.T) {
	processor := newTestProcessor(t, &stubBrowser{err: errors.New("boom")})

	job := NewJob(JobRequest{Type: JobTypeBatch, URLs: []string{"https://a.com", "https://b.com"}})

	result, err := processor.Process(context.Background(), job, func(int, string) {})
	if err != nil {
		t.Fatalf("batch jobs must not fail on per-URL errors: %v", err)
	}

	results, ok := result.([]*capture.Result)
	if !ok {
		t.Fatalf("expected []*capture.Result, got %T", result)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 records, got %d", len(results))
	}
	for _, r := range results {
		if r.Success {
			t.Errorf("expected failure records")
		}
	}

	if job.ProgressInfo == nil || job.ProgressInfo.TotalItems != 2 {
		t.Errorf("expected item progress for 2 URLs")
	}
}

func TestProcessMonitorJob(t *testing.T) {
	processor := newTestProcessor(t, &stubBrowser{})

	job := NewJob(JobRequest{Type: JobTypeMonitor, URL: "https://example.com"})

	result, err := processor.Process(context.Background(), job, func(int, string) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	captureResult, ok := result.(*capture.Result)
	if !ok {
		t.Fatalf("expected *capture.Result, got %T", result)
	}
	if !strings.HasSuffix(captureResult.Output, "_current.png") {
		t.Errorf("unexpected monitoring output %s", captureResult.Output)
	}
}

func TestProcessUnknownJobType(t *testing.T) {
	processor := newTestProcessor(t, &stubBrowser{})

	job := NewJob(JobRequest{Type: JobType("mystery"), URL: "https://example.com"})

	if _, err := processor.Process(context.Background(), job, func(int, string) {}); err == nil {
		t.Errorf("expected error for unknown job type")
	}
}
