package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Capture output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatPDF  = "pdf"
)

// A4 paper in inches, and a 10mm margin.
const (
	a4PaperWidth  = 8.27
	a4PaperHeight = 11.69
	pdfMargin     = 0.394
)

// CaptureOptions represents options for capturing a page.
type CaptureOptions struct {
	Format      string        `json:"format"` // png, jpeg, or pdf
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Mobile      bool          `json:"mobile"`
	FullPage    bool          `json:"full_page"`
	HideSticky  bool          `json:"hide_sticky"`
	Quality     int           `json:"quality,omitempty"` // jpeg only
	Delay       time.Duration `json:"delay,omitempty"`
	Timeout     time.Duration `json:"timeout"`
	WaitForLoad bool          `json:"wait_for_load"`
	UserAgent   string        `json:"user_agent,omitempty"`
	Stealth     bool          `json:"stealth,omitempty"`
}

// CaptureResult holds the captured bytes together with the page title and
// the full document dimensions measured after load.
type CaptureResult struct {
	Data   []byte `json:"-"`
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (o CaptureOptions) pageOptions() PageOptions {
	return PageOptions{
		Timeout:     o.Timeout,
		WaitForLoad: o.WaitForLoad,
		Width:       o.Width,
		Height:      o.Height,
		Mobile:      o.Mobile,
		UserAgent:   o.UserAgent,
		Stealth:     o.Stealth,
	}
}

func capturePage(opener pageOpener, ctx context.Context, url string, opts CaptureOptions) (*CaptureResult, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	page, cleanup, err := opener.OpenPage(ctx, url, opts.pageOptions())
	if err != nil {
		return nil, err
	}
	defer cleanup()
	defer page.Close()

	if opts.Delay > 0 {
		select {
		case <-time.After(opts.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Sticky headers repeat in stitched full-page screenshots; PDF print
	// layout already ignores them.
	if opts.HideSticky && opts.FullPage && opts.Format != FormatPDF {
		if err := hideStickyElements(page); err != nil {
			return nil, err
		}
	}

	info, err := probePage(page)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch opts.Format {
	case FormatPDF:
		data, err = printPDF(page)
	case FormatJPEG:
		data, err = page.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: intPtr(opts.Quality),
		})
	case FormatPNG, "":
		data, err = page.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
	default:
		return nil, fmt.Errorf("unsupported capture format: %s", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", url, err)
	}

	return &CaptureResult{
		Data:   data,
		Title:  info.Title,
		Width:  info.Width,
		Height: info.Height,
	}, nil
}

func printPDF(page *rod.Page) ([]byte, error) {
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(a4PaperWidth),
		PaperHeight:     float64Ptr(a4PaperHeight),
		MarginTop:       float64Ptr(pdfMargin),
		MarginBottom:    float64Ptr(pdfMargin),
		MarginLeft:      float64Ptr(pdfMargin),
		MarginRight:     float64Ptr(pdfMargin),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print pdf: %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf stream: %w", err)
	}

	return data, nil
}

func intPtr(v int) *int { return &v }

func float64Ptr(v float64) *float64 { return &v }
