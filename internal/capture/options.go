package capture

import (
	"time"

	"github.com/artvision/snapvision/internal/browser"
)

// Capture output formats.
const (
	FormatPNG  = browser.FormatPNG
	FormatJPEG = browser.FormatJPEG
	FormatPDF  = browser.FormatPDF
)

// Options controls a single capture.
type Options struct {
	Output     string        `json:"output,omitempty"`
	Format     string        `json:"format,omitempty"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	Mobile     bool          `json:"mobile,omitempty"`
	FullPage   bool          `json:"full_page"`
	HideSticky bool          `json:"hide_sticky"`
	Delay      time.Duration `json:"delay,omitempty"`
	Stealth    bool          `json:"stealth,omitempty"`
}

// DefaultOptions returns the default full-page capture options. Width and
// height stay zero so the service viewport defaults apply.
func DefaultOptions() Options {
	return Options{
		Format:     FormatPNG,
		FullPage:   true,
		HideSticky: true,
	}
}

func (o Options) normalized(width, height int) Options {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Width <= 0 {
		o.Width = width
	}
	if o.Height <= 0 {
		o.Height = height
	}
	return o
}

func (o Options) browserOptions(timeout time.Duration, quality int) browser.CaptureOptions {
	return browser.CaptureOptions{
		Format:      o.Format,
		Width:       o.Width,
		Height:      o.Height,
		Mobile:      o.Mobile,
		FullPage:    o.FullPage,
		HideSticky:  o.HideSticky,
		Quality:     quality,
		Delay:       o.Delay,
		Timeout:     timeout,
		WaitForLoad: true,
		Stealth:     o.Stealth,
	}
}
