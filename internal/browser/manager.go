package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Manager manages a Chromium/Chrome instance launched by rod.
type Manager struct {
	binPath   string
	mu        sync.Mutex
	restartMu sync.Mutex
	launcher  *launcher.Launcher
	browser   *rod.Browser
	wsURL     string
	running   bool
}

// NewManager creates a new Chrome manager. binPath may be empty, in which
// case rod resolves (and downloads if needed) its own Chromium build.
func NewManager(binPath string) *Manager {
	return &Manager{
		binPath: binPath,
	}
}

// Start launches Chrome and connects via CDP.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	l := launcher.New()
	if m.binPath != "" {
		l.Bin(m.binPath)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}

	m.launcher = l
	m.browser = browser
	m.wsURL = wsURL
	m.running = true

	log.Printf("Chrome started with endpoint %s", wsURL)
	return nil
}

// Stop stops Chrome.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			log.Printf("Warning: failed to close chrome: %v", err)
		}
	}

	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher.Cleanup()
	}

	m.launcher = nil
	m.browser = nil
	m.wsURL = ""
	m.running = false

	log.Println("Chrome stopped")
	return nil
}

// IsRunning reports whether Chrome is running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetEndpoint returns the Chrome DevTools endpoint.
func (m *Manager) GetEndpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wsURL
}

// NewPage creates a new browser page. A dead CDP connection triggers a
// single browser restart before giving up.
func (m *Manager) NewPage(ctx context.Context) (*rod.Page, error) {
	if err := m.ensureStarted(); err != nil {
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	page, err := m.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		if !isConnectionError(err) {
			return nil, fmt.Errorf("failed to create new page: %w", err)
		}

		if restartErr := m.restart(); restartErr != nil {
			return nil, fmt.Errorf("failed to restart chrome after connection error: %w", restartErr)
		}

		page, err = m.browser.Context(ctx).Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("failed to create new page: %w", err)
		}
	}

	return page, nil
}

// OpenPage creates a page, applies options, and navigates to the URL.
func (m *Manager) OpenPage(ctx context.Context, url string, opts PageOptions) (*rod.Page, func(), error) {
	page, err := m.NewPage(ctx)
	if err != nil {
		return nil, noopCleanup, err
	}

	if err := applyPageOptions(page, opts); err != nil {
		page.Close()
		return nil, noopCleanup, err
	}

	if err := page.Navigate(url); err != nil {
		page.Close()
		return nil, noopCleanup, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if opts.WaitForLoad {
		if err := page.WaitLoad(); err != nil {
			page.Close()
			return nil, noopCleanup, fmt.Errorf("failed to wait for page load: %w", err)
		}
	}

	return page, noopCleanup, nil
}

// Capture navigates to a URL and captures it as PNG, JPEG, or PDF.
func (m *Manager) Capture(ctx context.Context, url string, opts CaptureOptions) (*CaptureResult, error) {
	return capturePage(m, ctx, url, opts)
}

// GetPageInfo returns basic page information.
func (m *Manager) GetPageInfo(ctx context.Context, url string, opts PageOptions) (*PageInfo, error) {
	return getPageInfo(m, ctx, url, opts)
}

func (m *Manager) ensureStarted() error {
	if m.IsRunning() {
		return nil
	}

	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	if m.IsRunning() {
		return nil
	}

	return m.Start()
}

func (m *Manager) restart() error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	if err := m.Stop(); err != nil {
		log.Printf("Warning: failed to stop chrome before restart: %v", err)
	}

	return m.Start()
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "eof")
}
