package security

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// maxBodySize caps request bodies. Batch capture requests are the largest
// legitimate payloads and stay well under this.
const maxBodySize = 10 << 20

// Middleware holds the per-client limiter state the HTTP routes share.
type Middleware struct {
	rateLimiter *RateLimiter
}

func NewMiddleware(rl *RateLimiter) *Middleware {
	return &Middleware{rateLimiter: rl}
}

// clientKey identifies the caller for rate limiting. API keys are preferred
// so a shared NAT does not pool unrelated clients into one window.
func clientKey(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	return c.IP()
}

// RateLimitMiddleware rejects callers that exceed their capture-request
// window with 429 and the standard X-RateLimit headers.
func (m *Middleware) RateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientKey(c)

		if !m.rateLimiter.Allow(client) {
			info := m.rateLimiter.GetInfo(client)
			retryAfter := int64(time.Until(info.ResetAt).Seconds())

			c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
		}

		info := m.rateLimiter.GetInfo(client)
		c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

		return c.Next()
	}
}

// SecurityHeadersMiddleware sets response hardening headers and tags every
// request with an X-Request-ID for log correlation.
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", "default-src 'self'")

		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		c.Set("X-Request-ID", requestID)
		c.Locals("requestID", requestID)

		return c.Next()
	}
}

// RequestValidationMiddleware rejects non-JSON mutation requests and
// oversized bodies before they reach a handler.
func RequestValidationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
			contentType := c.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"success": false,
					"error":   "Content-Type must be application/json",
				})
			}
		}

		if len(c.Body()) > maxBodySize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"success": false,
				"error":   "Request body too large",
			})
		}

		return c.Next()
	}
}

// IPWhitelistMiddleware restricts the API to the given source addresses.
// An empty list allows everyone.
func IPWhitelistMiddleware(allowedIPs []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(allowedIPs))
	for _, ip := range allowedIPs {
		allowed[strings.TrimSpace(ip)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if len(allowedIPs) == 0 {
			return c.Next()
		}

		if _, ok := allowed[c.IP()]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Access denied",
			})
		}

		return c.Next()
	}
}
