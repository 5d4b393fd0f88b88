package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artvision/snapvision/internal/queue"
	"github.com/artvision/snapvision/internal/security"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// JobHandler handles job-related API requests
type JobHandler struct {
	queueManager     *queue.Manager
	idempotencyStore *security.IdempotencyStore
	baseURL          string
	maxJobTimeout    time.Duration
	resultTTL        time.Duration
}

// NewJobHandler creates a new job handler
func NewJobHandler(qm *queue.Manager) *JobHandler {
	return NewJobHandlerWithConfig(qm, security.NewIdempotencyStore(24*time.Hour), DefaultRouteConfig())
}

// NewJobHandlerWithConfig creates a new job handler with a shared idempotency
// store. The config supplies the base URL for status and result links and the
// server-side bounds on job timeout and result TTL.
func NewJobHandlerWithConfig(qm *queue.Manager, idempotencyStore *security.IdempotencyStore, config RouteConfig) *JobHandler {
	maxJobTimeout := config.MaxJobTimeout
	if maxJobTimeout <= 0 {
		maxJobTimeout = 10 * time.Minute
	}
	resultTTL := config.ResultTTL
	if resultTTL <= 0 {
		resultTTL = queue.DefaultResultTTL
	}

	return &JobHandler{
		queueManager:     qm,
		idempotencyStore: idempotencyStore,
		baseURL:          config.BaseURL,
		maxJobTimeout:    maxJobTimeout,
		resultTTL:        resultTTL,
	}
}

// CreateJobRequest extends JobRequest with security fields
type CreateJobRequest struct {
	queue.JobRequest
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Priority       int    `json:"priority,omitempty"` // 1-10, higher = more priority
	Timeout        int    `json:"timeout,omitempty"`  // seconds
	MaxRetries     int    `json:"max_retries,omitempty"`
}

func validateJobRequest(req *queue.JobRequest) error {
	if req.Type == "" {
		req.Type = queue.JobTypeCapture
	}

	switch req.Type {
	case queue.JobTypeSERP:
		if req.Query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Query is required")
		}
	case queue.JobTypeSERPBatch:
		if len(req.Queries) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Queries are required")
		}
	case queue.JobTypeBatch, queue.JobTypeAudit:
		if len(req.URLs) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "URLs are required")
		}
	default:
		if req.URL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "URL is required")
		}
	}

	return nil
}

// prepareRequest applies server-side defaults and bounds before the job is
// built: priority 1-10 (default 5), timeout capped by the configured
// maximum, at most 5 retries, and the configured result retention when the
// client names none.
func (h *JobHandler) prepareRequest(req *CreateJobRequest) {
	if req.Priority < 1 || req.Priority > 10 {
		req.Priority = 5
	}

	maxTimeout := int(h.maxJobTimeout.Seconds())
	if req.Timeout > maxTimeout {
		req.Timeout = maxTimeout
	}

	// Captures are not retried unless asked for
	if req.MaxRetries > 5 {
		req.MaxRetries = 5
	}

	if req.JobRequest.ResultTTL <= 0 {
		req.JobRequest.ResultTTL = int(h.resultTTL.Seconds())
	}
}

// CreateJob creates a new async capture job
// POST /snap/jobs
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := validateJobRequest(&req.JobRequest); err != nil {
		return err
	}

	// Check idempotency key from header or body
	idempotencyKey := c.Get("X-Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	// If idempotency key provided, check for cached response
	if idempotencyKey != "" && h.idempotencyStore != nil {
		if cachedResponse, exists := h.idempotencyStore.Check(idempotencyKey); exists {
			c.Set("X-Idempotency-Hit", "true")
			return c.Status(fiber.StatusAccepted).JSON(Response{
				Success: true,
				Data:    cachedResponse,
			})
		}
	}

	h.prepareRequest(&req)

	job := queue.NewJob(req.JobRequest)

	// Set idempotency key
	if idempotencyKey != "" {
		job.IdempotencyKey = idempotencyKey
	}

	job.Priority = req.Priority
	if req.Timeout > 0 {
		job.Timeout = req.Timeout
	}
	if req.MaxRetries > 0 {
		job.MaxRetries = req.MaxRetries
	}

	// Enqueue with idempotency check
	enqueuedJob, wasDuplicate, err := h.queueManager.EnqueueWithIdempotency(job)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to enqueue job: %v", err))
	}

	response := queue.JobCreatedResponse{
		JobID:     enqueuedJob.ID,
		Status:    enqueuedJob.Status,
		StatusURL: fmt.Sprintf("%s/snap/jobs/%s", h.baseURL, enqueuedJob.ID),
		ResultURL: fmt.Sprintf("%s/snap/jobs/%s/result", h.baseURL, enqueuedJob.ID),
	}
	response.Events.SSEURL = fmt.Sprintf("%s/snap/jobs/%s/events", h.baseURL, enqueuedJob.ID)
	response.Events.WSURL = fmt.Sprintf("%s/snap/ws?job_id=%s", h.baseURL, enqueuedJob.ID)

	// Cache response for idempotency
	if idempotencyKey != "" && h.idempotencyStore != nil && !wasDuplicate {
		h.idempotencyStore.Store(idempotencyKey, enqueuedJob.ID, response)
	}

	if wasDuplicate {
		c.Set("X-Idempotency-Hit", "true")
	}

	return c.Status(fiber.StatusAccepted).JSON(Response{
		Success: true,
		Data:    response,
	})
}

// GetJobStatus returns the status of a job
// GET /snap/jobs/:job_id
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.queueManager.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	response := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"progress":   job.Progress,
		"message":    job.Message,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
		"priority":   job.Priority,
	}

	// Add progress info if available
	if job.ProgressInfo != nil {
		response["progress_info"] = map[string]interface{}{
			"current_item": job.ProgressInfo.CurrentItem,
			"total_items":  job.ProgressInfo.TotalItems,
			"stage":        job.ProgressInfo.Stage,
		}
	}

	// Add retry info if retrying
	if job.Status == queue.JobStatusRetrying || job.RetryCount > 0 {
		response["retry_info"] = map[string]interface{}{
			"retry_count": job.RetryCount,
			"max_retries": job.MaxRetries,
			"last_error":  job.LastError,
		}
		if job.NextRetryAt > 0 {
			response["next_retry_at"] = time.Unix(job.NextRetryAt, 0).Format(time.RFC3339)
		}
	}

	// Add TTL info
	if job.ExpiresAt > 0 {
		response["expires_at"] = time.Unix(job.ExpiresAt, 0).Format(time.RFC3339)
	}

	return c.JSON(Response{
		Success: true,
		Data:    response,
	})
}

// GetJobResult returns the result of a completed job
// GET /snap/jobs/:job_id/result
func (h *JobHandler) GetJobResult(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.queueManager.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	if job.Status != queue.JobStatusSucceeded && job.Status != queue.JobStatusFailed {
		return fiber.NewError(fiber.StatusConflict, "Job not completed yet")
	}

	return c.JSON(Response{
		Success: true,
		Data: queue.JobResultResponse{
			JobID:  job.ID,
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		},
	})
}

// CancelJob cancels a queued or running job
// POST /snap/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.queueManager.CancelJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
		},
	})
}

// StreamEvents streams job events via SSE
// GET /snap/jobs/:job_id/events
func (h *JobHandler) StreamEvents(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	// Check if job exists
	job, err := h.queueManager.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// Send initial status
		eventData, _ := json.Marshal(queue.Event{
			JobID:    job.ID,
			Status:   job.Status,
			Progress: job.Progress,
			Message:  job.Message,
		})
		fmt.Fprintf(w, "data: %s\n\n", eventData)
		w.Flush()

		// If job is already completed, close the stream
		if job.Status == queue.JobStatusSucceeded || job.Status == queue.JobStatusFailed || job.Status == queue.JobStatusCanceled {
			return
		}

		// Subscribe to events
		events := h.queueManager.Subscribe(jobID)
		defer h.queueManager.Unsubscribe(jobID, events)

		for event := range events {
			eventData, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", eventData)
			w.Flush()

			// Close stream when job completes
			if event.Status == queue.JobStatusSucceeded || event.Status == queue.JobStatusFailed || event.Status == queue.JobStatusCanceled {
				return
			}
		}
	})

	return nil
}

// HandleWebSocket handles WebSocket connections for job events
func (h *JobHandler) HandleWebSocket(c *websocket.Conn) {
	jobID := c.Query("job_id")
	if jobID == "" {
		_ = c.WriteJSON(map[string]interface{}{
			"error": "job_id is required",
		})
		c.Close()
		return
	}

	// Check if job exists
	job, err := h.queueManager.GetJob(jobID)
	if err != nil {
		_ = c.WriteJSON(map[string]interface{}{
			"error": "job not found",
		})
		c.Close()
		return
	}

	// Send initial status
	_ = c.WriteJSON(queue.Event{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
	})

	// If job is already completed, close the connection
	if job.Status == queue.JobStatusSucceeded || job.Status == queue.JobStatusFailed || job.Status == queue.JobStatusCanceled {
		c.Close()
		return
	}

	// Subscribe to events
	events := h.queueManager.Subscribe(jobID)
	defer h.queueManager.Unsubscribe(jobID, events)

	// Send events to client
	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			return
		}

		// Close connection when job completes
		if event.Status == queue.JobStatusSucceeded || event.Status == queue.JobStatusFailed || event.Status == queue.JobStatusCanceled {
			time.Sleep(100 * time.Millisecond)
			return
		}
	}
}
