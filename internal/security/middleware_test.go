package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func okHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func TestRateLimitMiddlewareHeadersAndRejection(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstMax:          10,
	})
	m := NewMiddleware(rl)

	app := fiber.New()
	app.Get("/", m.RateLimitMiddleware(), okHandler)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", resp.Header.Get("X-RateLimit-Limit"))
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", resp.Header.Get("X-RateLimit-Remaining"))
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("rejected response should carry Retry-After")
	}
}

func TestRateLimitMiddlewareKeysByAPIKey(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstMax:          10,
	})
	m := NewMiddleware(rl)

	app := fiber.New()
	app.Get("/", m.RateLimitMiddleware(), okHandler)

	first := httptest.NewRequest("GET", "/", nil)
	first.Header.Set("X-API-Key", "team-a")
	if resp, _ := app.Test(first); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("team-a first request status = %d, want 200", resp.StatusCode)
	}

	// Same source IP, different API key: separate window.
	second := httptest.NewRequest("GET", "/", nil)
	second.Header.Set("X-API-Key", "team-b")
	if resp, _ := app.Test(second); resp.StatusCode != fiber.StatusOK {
		t.Errorf("team-b request status = %d, want 200", resp.StatusCode)
	}

	exhausted := httptest.NewRequest("GET", "/", nil)
	exhausted.Header.Set("X-API-Key", "team-a")
	if resp, _ := app.Test(exhausted); resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("team-a second request status = %d, want 429", resp.StatusCode)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeadersMiddleware())
	app.Get("/", okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
	if !strings.HasPrefix(resp.Header.Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q, want generated req_ ID", resp.Header.Get("X-Request-ID"))
	}
}

func TestRequestValidationMiddlewareContentType(t *testing.T) {
	app := fiber.New()
	app.Use(RequestValidationMiddleware())
	app.Post("/", okHandler)

	req := httptest.NewRequest("POST", "/", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "application/xml")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("XML POST status = %d, want 415", resp.StatusCode)
	}

	jsonReq := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	jsonReq.Header.Set("Content-Type", "application/json")
	if resp, _ := app.Test(jsonReq); resp.StatusCode != fiber.StatusOK {
		t.Errorf("JSON POST status = %d, want 200", resp.StatusCode)
	}
}

func TestIPWhitelistMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(IPWhitelistMiddleware([]string{"203.0.113.7"}))
	app.Get("/", okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("non-whitelisted IP status = %d, want 403", resp.StatusCode)
	}

	open := fiber.New()
	open.Use(IPWhitelistMiddleware(nil))
	open.Get("/", okHandler)
	if resp, _ := open.Test(httptest.NewRequest("GET", "/", nil)); resp.StatusCode != fiber.StatusOK {
		t.Errorf("empty whitelist status = %d, want 200", resp.StatusCode)
	}
}
