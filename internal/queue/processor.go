package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/artvision/snapvision/internal/capture"
	"github.com/artvision/snapvision/internal/security"
)

// JobProcessor runs one job and returns its result payload.
type JobProcessor interface {
	Process(ctx context.Context, job *Job, progress func(int, string)) (interface{}, error)
}

// CaptureProcessor runs capture jobs against the capture service. URLs
// inside one job are captured sequentially.
type CaptureProcessor struct {
	service *capture.Service
}

// NewCaptureProcessor creates a new capture processor
func NewCaptureProcessor(service *capture.Service) *CaptureProcessor {
	return &CaptureProcessor{
		service: service,
	}
}

// ProgressReporter provides methods for reporting detailed progress
type ProgressReporter struct {
	job          *Job
	updateFunc   func(int, string)
	currentStage string
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(job *Job, updateFunc func(int, string)) *ProgressReporter {
	return &ProgressReporter{
		job:        job,
		updateFunc: updateFunc,
	}
}

// SetStage sets the current processing stage
func (r *ProgressReporter) SetStage(stage string) {
	r.currentStage = stage
	if r.job.ProgressInfo == nil {
		r.job.ProgressInfo = &ProgressInfo{}
	}
	r.job.ProgressInfo.Stage = stage
}

// SetItemProgress sets item progress (item X of Y)
func (r *ProgressReporter) SetItemProgress(current, total int, message string) {
	if r.job.ProgressInfo == nil {
		r.job.ProgressInfo = &ProgressInfo{}
	}
	r.job.ProgressInfo.CurrentItem = current
	r.job.ProgressInfo.TotalItems = total

	var pct int
	if total > 0 {
		pct = (current * 100) / total
	}

	fullMessage := fmt.Sprintf("[Item %d/%d] %s", current, total, message)
	r.updateFunc(pct, fullMessage)
}

// Report reports simple percentage progress
func (r *ProgressReporter) Report(pct int, message string) {
	r.updateFunc(pct, message)
}

// Process runs a capture job and returns its result payload.
func (p *CaptureProcessor) Process(ctx context.Context, job *Job, progress func(int, string)) (interface{}, error) {
	req := job.Request

	reporter := NewProgressReporter(job, progress)
	reporter.SetStage("initialization")
	reporter.Report(5, "Preparing capture")

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("job timed out: %w", ctx.Err())
	default:
	}

	reporter.SetStage("capturing")

	var result interface{}
	var err error

	switch req.Type {
	case JobTypeCapture, "":
		result, err = p.processCapture(ctx, req, reporter)
	case JobTypeBoth:
		result = p.service.CaptureBoth(ctx, req.URL, req.OutputDir)
	case JobTypeBatch:
		result = p.processBatch(ctx, req, reporter)
	case JobTypeAudit:
		result, err = p.service.SEOAudit(ctx, req.URLs, req.OutputDir, includeMobile(req))
	case JobTypeSERP:
		result, err = p.processSERP(ctx, req)
	case JobTypeSERPBatch:
		result, err = p.service.SERPBatch(ctx, req.Queries, req.Engine, req.Region, req.OutputDir)
	case JobTypeLayout:
		result, err = p.service.LayoutAudit(ctx, req.URL, req.Breakpoints, req.OutputDir)
	case JobTypeMonitor:
		result = p.service.MonitorSnapshot(ctx, req.URL, req.OutputDir)
	case JobTypeVisualAudit:
		result, err = p.service.VisualAudit(ctx, req.URL, req.Competitors, req.Queries, req.OutputDir, includeMobile(req))
	default:
		return nil, fmt.Errorf("unknown job type: %s", req.Type)
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("job timed out after %v: %w", job.GetTimeoutDuration(), ctx.Err())
		}
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	reporter.SetStage("processing")
	reporter.Report(95, "Processing result")

	// Send webhook if configured
	if job.Notify != nil && job.Notify.WebhookURL != "" {
		go sendWebhook(job.ID, job.Notify.WebhookURL, job.Notify.WebhookSecret, "succeeded")
	}

	reporter.SetStage("completed")
	reporter.Report(100, "Job completed successfully")

	return result, nil
}

// processCapture runs a single-URL capture. A failed capture fails the
// whole job; batch jobs instead record per-URL failures.
func (p *CaptureProcessor) processCapture(ctx context.Context, req JobRequest, reporter *ProgressReporter) (*capture.Result, error) {
	reporter.SetItemProgress(1, 1, "Capturing "+req.URL)

	result := p.service.CaptureURL(ctx, req.URL, captureOptions(req))
	if !result.Success {
		return nil, errors.New(result.Error)
	}

	return result, nil
}

func (p *CaptureProcessor) processBatch(ctx context.Context, req JobRequest, reporter *ProgressReporter) []*capture.Result {
	return p.service.Batch(ctx, req.URLs, req.OutputDir, captureOptions(req), func(current, total int, url string) {
		reporter.SetItemProgress(current, total, "Capturing "+url)
	})
}

func (p *CaptureProcessor) processSERP(ctx context.Context, req JobRequest) (*capture.Result, error) {
	result := p.service.SERPScreenshot(ctx, req.Query, req.Engine, req.Region, "")
	if !result.Success {
		return nil, errors.New(result.Error)
	}
	return result, nil
}

func captureOptions(req JobRequest) capture.Options {
	opts := capture.DefaultOptions()
	if req.Format != "" {
		opts.Format = req.Format
	}
	if req.Width > 0 {
		opts.Width = req.Width
	}
	if req.Height > 0 {
		opts.Height = req.Height
	}
	opts.Mobile = req.Mobile
	if req.FullPage != nil {
		opts.FullPage = *req.FullPage
	}
	if req.HideSticky != nil {
		opts.HideSticky = *req.HideSticky
	}
	if req.DelayMS > 0 {
		opts.Delay = time.Duration(req.DelayMS) * time.Millisecond
	}
	return opts
}

func includeMobile(req JobRequest) bool {
	if req.IncludeMobile == nil {
		return true
	}
	return *req.IncludeMobile
}

// sendWebhook sends a webhook notification, signed when a secret is set
func sendWebhook(jobID, webhookURL, secret, status string) {
	payload := map[string]interface{}{
		"job_id":      jobID,
		"status":      status,
		"result_url":  fmt.Sprintf("/snap/jobs/%s/result", jobID),
		"finished_at": time.Now().Unix(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal webhook payload: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(data))
	if err != nil {
		log.Printf("Failed to create webhook request: %v", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Snapvision-Event", "job."+status)
	if secret != "" {
		req.Header.Set("X-Snapvision-Signature", security.GenerateWebhookSignature(data, secret))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("Failed to send webhook: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("Webhook returned error status: %d", resp.StatusCode)
	}
}
