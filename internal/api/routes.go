package api

import (
	"time"

	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/capture"
	"github.com/artvision/snapvision/internal/queue"
	"github.com/artvision/snapvision/internal/security"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, browserManager browser.Client, service *capture.Service) {
	handler := NewHandler(browserManager, service)

	// Health check (simple path)
	app.Get("/health", handler.HealthCheck)

	// Snap routes
	registerRoutes(app.Group("/snap"), handler)
}

// RouteConfig holds configuration for routes
type RouteConfig struct {
	RateLimitRequests int           // requests per window
	RateLimitWindow   time.Duration // time window
	IdempotencyTTL    time.Duration // TTL for idempotency keys
	BaseURL           string        // Base URL for full URLs in responses
	MaxJobTimeout     time.Duration // upper bound on client-requested job timeouts
	ResultTTL         time.Duration // default retention for job results
}

// DefaultRouteConfig returns default route configuration
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		IdempotencyTTL:    24 * time.Hour,
		BaseURL:           "http://localhost:8000",
		MaxJobTimeout:     10 * time.Minute,
		ResultTTL:         7 * 24 * time.Hour,
	}
}

// SetupJobRoutes configures job queue routes
func SetupJobRoutes(app *fiber.App, queueManager *queue.Manager) {
	SetupJobRoutesWithConfig(app, queueManager, DefaultRouteConfig())
}

// SetupJobRoutesWithConfig configures job queue routes with custom config
func SetupJobRoutesWithConfig(app *fiber.App, queueManager *queue.Manager, config RouteConfig) {
	// Create security stores
	rateLimiter := security.NewRateLimiter(security.RateLimitConfig{
		RequestsPerWindow: config.RateLimitRequests,
		WindowDuration:    config.RateLimitWindow,
		BurstMax:          20,
	})
	idempotencyStore := security.NewIdempotencyStore(config.IdempotencyTTL)

	jobHandler := NewJobHandlerWithConfig(queueManager, idempotencyStore, config)

	// Create security middleware
	secMiddleware := security.NewMiddleware(rateLimiter)

	snap := app.Group("/snap")

	// Apply security headers to all snap routes
	snap.Use(security.SecurityHeadersMiddleware())

	// Job queue endpoints with rate limiting
	jobsGroup := snap.Group("/jobs")
	jobsGroup.Use(security.RequestValidationMiddleware())
	jobsGroup.Use(secMiddleware.RateLimitMiddleware())

	jobsGroup.Post("", jobHandler.CreateJob)
	jobsGroup.Get("/:job_id", jobHandler.GetJobStatus)
	jobsGroup.Get("/:job_id/result", jobHandler.GetJobResult)
	jobsGroup.Post("/:job_id/cancel", jobHandler.CancelJob)
	jobsGroup.Get("/:job_id/events", jobHandler.StreamEvents)

	// WebSocket endpoint for job events
	app.Use("/snap/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/snap/ws", websocket.New(jobHandler.HandleWebSocket))
}

// SetupSecureRoutes configures routes with full security middleware
func SetupSecureRoutes(app *fiber.App, browserManager browser.Client, service *capture.Service, config RouteConfig) {
	handler := NewHandler(browserManager, service)

	// Create rate limiter
	rateLimiter := security.NewRateLimiter(security.RateLimitConfig{
		RequestsPerWindow: config.RateLimitRequests,
		WindowDuration:    config.RateLimitWindow,
		BurstMax:          20,
	})

	// Create security middleware
	secMiddleware := security.NewMiddleware(rateLimiter)

	// Health check (no rate limit)
	app.Get("/health", handler.HealthCheck)

	// Snap routes with security
	snap := app.Group("/snap")
	snap.Use(security.SecurityHeadersMiddleware())
	snap.Use(secMiddleware.RateLimitMiddleware())

	registerRoutes(snap, handler)
}

func registerRoutes(snap fiber.Router, handler *Handler) {
	// Browser status
	snap.Get("/browser/status", handler.BrowserStatus)

	// Capture operations
	snap.Post("/capture", handler.Capture)
	snap.Post("/capture/both", handler.CaptureBoth)
	snap.Post("/capture/batch", handler.BatchCapture)

	// SERP operations
	snap.Post("/serp", handler.SERP)
	snap.Post("/serp/batch", handler.SERPBatch)

	// Audit operations
	snap.Post("/audit", handler.Audit)
	snap.Post("/audit/visual", handler.VisualAudit)
	snap.Post("/layout", handler.Layout)

	// Monitoring
	snap.Post("/monitor", handler.Monitor)

	// Page metadata
	snap.Post("/page/info", handler.GetPageInfo)
}
