package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// MobileUserAgent is the user agent applied when emulating a phone viewport.
const MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

// Mobile viewport preset (iPhone-class device).
const (
	MobileViewportWidth  = 375
	MobileViewportHeight = 812
)

// PageOptions represents options applied before navigation.
type PageOptions struct {
	Timeout     time.Duration `json:"timeout"`
	WaitForLoad bool          `json:"wait_for_load"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Mobile      bool          `json:"mobile,omitempty"`
	UserAgent   string        `json:"user_agent,omitempty"`
	Stealth     bool          `json:"stealth,omitempty"`
}

// DefaultPageOptions returns default page options.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		Timeout:     30 * time.Second,
		WaitForLoad: true,
		Width:       1280,
		Height:      800,
	}
}

// PageInfo represents basic information about a rendered page.
type PageInfo struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pageOpener interface {
	OpenPage(ctx context.Context, url string, opts PageOptions) (*rod.Page, func(), error)
}

func getPageInfo(opener pageOpener, ctx context.Context, url string, opts PageOptions) (*PageInfo, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	page, cleanup, err := opener.OpenPage(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	defer page.Close()

	info, err := probePage(page)
	if err != nil {
		return nil, err
	}
	info.URL = url

	return info, nil
}

// probePage measures the full document and reads its title.
func probePage(page *rod.Page) (*PageInfo, error) {
	result, err := page.Eval(`() => ({
		width: Math.max(document.body.scrollWidth, document.documentElement.scrollWidth),
		height: Math.max(document.body.scrollHeight, document.documentElement.scrollHeight),
		title: document.title,
	})`)
	if err != nil {
		return nil, fmt.Errorf("failed to probe page dimensions: %w", err)
	}

	return &PageInfo{
		Title:  result.Value.Get("title").Str(),
		Width:  int(result.Value.Get("width").Int()),
		Height: int(result.Value.Get("height").Int()),
	}, nil
}

// hideStickyElements re-positions fixed and sticky elements so they do not
// repeat down a stitched full-page screenshot.
func hideStickyElements(page *rod.Page) error {
	_, err := page.Eval(`() => {
		document.querySelectorAll('*').forEach(el => {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				el.style.position = 'absolute';
			}
		});
	}`)
	if err != nil {
		return fmt.Errorf("failed to hide sticky elements: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func applyPageOptions(page *rod.Page, opts PageOptions) error {
	if opts.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			return fmt.Errorf("failed to inject stealth script: %w", err)
		}
	}

	width, height := opts.Width, opts.Height
	userAgent := opts.UserAgent
	if opts.Mobile {
		width, height = MobileViewportWidth, MobileViewportHeight
		if userAgent == "" {
			userAgent = MobileUserAgent
		}
	}

	if width > 0 && height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             width,
			Height:            height,
			DeviceScaleFactor: 1,
			Mobile:            opts.Mobile,
		})
		if err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	return nil
}

func noopCleanup() {}
