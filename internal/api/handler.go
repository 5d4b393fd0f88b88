package api

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/capture"
	"github.com/gofiber/fiber/v2"
)

// Handler handles API requests
type Handler struct {
	browserManager browser.Client
	service        *capture.Service
}

// NewHandler creates a new handler
func NewHandler(browserManager browser.Client, service *capture.Service) *Handler {
	return &Handler{
		browserManager: browserManager,
		service:        service,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorHandler is the custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(Response{
		Success: false,
		Error:   err.Error(),
	})
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// BrowserStatus returns browser status
func (h *Handler) BrowserStatus(c *fiber.Ctx) error {
	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"running":  h.browserManager.IsRunning(),
			"endpoint": h.browserManager.GetEndpoint(),
		},
	})
}

// CaptureRequest represents a single-page capture request.
type CaptureRequest struct {
	URL        string `json:"url" validate:"required"`
	Output     string `json:"output,omitempty"`
	Format     string `json:"format,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Mobile     bool   `json:"mobile,omitempty"`
	FullPage   *bool  `json:"full_page,omitempty"`
	HideSticky *bool  `json:"hide_sticky,omitempty"`
	DelayMS    int    `json:"delay_ms,omitempty"`
	Inline     bool   `json:"inline,omitempty"` // include base64 image data in the response
}

func buildCaptureOptions(req CaptureRequest) capture.Options {
	opts := capture.DefaultOptions()
	opts.Output = req.Output
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

// Capture captures a single page as PNG, JPEG or PDF
func (h *Handler) Capture(c *fiber.Ctx) error {
	var req CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	result := h.service.CaptureURL(context.Background(), req.URL, buildCaptureOptions(req))
	if !result.Success {
		return fiber.NewError(fiber.StatusInternalServerError, result.Error)
	}

	if !req.Inline {
		return c.JSON(Response{
			Success: true,
			Data:    result,
		})
	}

	data, err := os.ReadFile(result.Output)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"result": result,
			"data":   base64.StdEncoding.EncodeToString(data),
		},
	})
}

// CaptureBothRequest represents a desktop+mobile capture request.
type CaptureBothRequest struct {
	URL       string `json:"url" validate:"required"`
	OutputDir string `json:"output_dir,omitempty"`
}

// CaptureBoth captures desktop and mobile variants of a page
func (h *Handler) CaptureBoth(c *fiber.Ctx) error {
	var req CaptureBothRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	result := h.service.CaptureBoth(context.Background(), req.URL, req.OutputDir)

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// BatchCaptureRequest represents a multi-URL capture request.
type BatchCaptureRequest struct {
	URLs      []string `json:"urls" validate:"required"`
	OutputDir string   `json:"output_dir,omitempty"`
	CaptureRequest
}

// BatchCapture captures multiple pages sequentially
func (h *Handler) BatchCapture(c *fiber.Ctx) error {
	var req BatchCaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if len(req.URLs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "URLs are required")
	}

	results := h.service.Batch(context.Background(), req.URLs, req.OutputDir, buildCaptureOptions(req.CaptureRequest), nil)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"results":   results,
			"total":     len(results),
			"succeeded": succeeded,
		},
	})
}

// AuditRequest represents an SEO audit request.
type AuditRequest struct {
	URLs          []string `json:"urls" validate:"required"`
	OutputDir     string   `json:"output_dir,omitempty"`
	IncludeMobile *bool    `json:"include_mobile,omitempty"`
}

// Audit captures desktop and mobile screenshots for a set of pages
func (h *Handler) Audit(c *fiber.Ctx) error {
	var req AuditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if len(req.URLs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "URLs are required")
	}

	includeMobile := true
	if req.IncludeMobile != nil {
		includeMobile = *req.IncludeMobile
	}

	result, err := h.service.SEOAudit(context.Background(), req.URLs, req.OutputDir, includeMobile)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// SERPRequest represents a search results capture request.
type SERPRequest struct {
	Query   string   `json:"query,omitempty"`
	Queries []string `json:"queries,omitempty"`
	Engine  string   `json:"engine,omitempty"`
	Region  string   `json:"region,omitempty"`
	Output  string   `json:"output,omitempty"`
}

// SERP captures a search engine results page for a query
func (h *Handler) SERP(c *fiber.Ctx) error {
	var req SERPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query is required")
	}

	result := h.service.SERPScreenshot(context.Background(), req.Query, req.Engine, req.Region, req.Output)
	if !result.Success {
		return fiber.NewError(fiber.StatusInternalServerError, result.Error)
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// SERPBatch captures search results pages for multiple queries
func (h *Handler) SERPBatch(c *fiber.Ctx) error {
	var req SERPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if len(req.Queries) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Queries are required")
	}

	result, err := h.service.SERPBatch(context.Background(), req.Queries, req.Engine, req.Region, req.Output)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// LayoutRequest represents a responsive layout audit request.
type LayoutRequest struct {
	URL         string `json:"url" validate:"required"`
	Breakpoints []int  `json:"breakpoints,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
}

// Layout captures a page at multiple viewport widths
func (h *Handler) Layout(c *fiber.Ctx) error {
	var req LayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	result, err := h.service.LayoutAudit(context.Background(), req.URL, req.Breakpoints, req.OutputDir)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// MonitorRequest represents a monitoring snapshot request.
type MonitorRequest struct {
	URL       string `json:"url" validate:"required"`
	OutputDir string `json:"output_dir,omitempty"`
}

// Monitor takes a monitoring snapshot and compares it to the previous one
func (h *Handler) Monitor(c *fiber.Ctx) error {
	var req MonitorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	result := h.service.MonitorSnapshot(context.Background(), req.URL, req.OutputDir)
	if !result.Success {
		return fiber.NewError(fiber.StatusInternalServerError, result.Error)
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// VisualAuditRequest represents a client-vs-competitors audit request.
type VisualAuditRequest struct {
	URL           string   `json:"url" validate:"required"`
	Competitors   []string `json:"competitors,omitempty"`
	Queries       []string `json:"queries,omitempty"`
	OutputDir     string   `json:"output_dir,omitempty"`
	IncludeMobile *bool    `json:"include_mobile,omitempty"`
}

// VisualAudit captures a client site, its competitors and SERP screenshots
func (h *Handler) VisualAudit(c *fiber.Ctx) error {
	var req VisualAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	includeMobile := true
	if req.IncludeMobile != nil {
		includeMobile = *req.IncludeMobile
	}

	result, err := h.service.VisualAudit(context.Background(), req.URL, req.Competitors, req.Queries, req.OutputDir, includeMobile)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}

// PageInfoRequest represents a page probe request.
type PageInfoRequest struct {
	URL     string `json:"url" validate:"required"`
	Timeout int    `json:"timeout,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
}

// GetPageInfo returns the title and rendered dimensions of a page
func (h *Handler) GetPageInfo(c *fiber.Ctx) error {
	var req PageInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	opts := browser.DefaultPageOptions()
	if req.Timeout > 0 {
		opts.Timeout = time.Duration(req.Timeout) * time.Second
	}
	opts.Mobile = req.Mobile

	result, err := h.browserManager.GetPageInfo(context.Background(), req.URL, opts)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(Response{
		Success: true,
		Data:    result,
	})
}
