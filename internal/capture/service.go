package capture

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/report"
)

// DefaultBreakpoints are the viewport widths used by layout audits.
var DefaultBreakpoints = []int{
	320,  // Mobile S
	375,  // Mobile M (iPhone)
	425,  // Mobile L
	768,  // Tablet
	1024, // Laptop
	1440, // Desktop
	1920, // Full HD
}

// serpPause is the pause between consecutive SERP captures, to stay under
// the engines' anti-bot thresholds.
const serpPause = 2 * time.Second

// Service runs capture scenarios against a shared browser. Captures inside
// one scenario are sequential.
type Service struct {
	client    browser.Client
	outputDir string
	timeout   time.Duration
	quality   int
	width     int
	height    int
}

// ServiceConfig holds service-wide capture defaults. Zero fields fall back
// to the standard defaults.
type ServiceConfig struct {
	OutputDir string
	Timeout   time.Duration
	Quality   int
	Width     int // default viewport width for captures that set none
	Height    int // default viewport height
}

// NewService creates a capture service writing to outputDir.
func NewService(client browser.Client, outputDir string, timeout time.Duration, quality int) *Service {
	return NewServiceWithConfig(client, ServiceConfig{
		OutputDir: outputDir,
		Timeout:   timeout,
		Quality:   quality,
	})
}

// NewServiceWithConfig creates a capture service with explicit defaults,
// including the viewport used when a capture does not name one.
func NewServiceWithConfig(client browser.Client, cfg ServiceConfig) *Service {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./screenshots"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 90
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}

	return &Service{
		client:    client,
		outputDir: cfg.OutputDir,
		timeout:   cfg.Timeout,
		quality:   cfg.Quality,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// OutputDir returns the base directory for captures.
func (s *Service) OutputDir() string {
	return s.outputDir
}

// CaptureURL captures a single URL. Failures are reported in the result,
// not as an error.
func (s *Service) CaptureURL(ctx context.Context, url string, opts Options) *Result {
	return s.capture(ctx, url, opts)
}

// CaptureBoth captures the desktop (1920px) and mobile versions of a URL
// into outputDir, sharing a common filename stem.
func (s *Service) CaptureBoth(ctx context.Context, url, outputDir string) *BothResult {
	now := time.Now()
	if outputDir == "" {
		outputDir = s.outputDir
	}

	base := SafeBaseName(url, now)

	desktopOpts := DefaultOptions()
	desktopOpts.Width = 1920
	desktopOpts.Output = filepath.Join(outputDir, base+"_desktop.png")

	mobileOpts := DefaultOptions()
	mobileOpts.Mobile = true
	mobileOpts.Output = filepath.Join(outputDir, base+"_mobile.png")

	return &BothResult{
		URL:       url,
		Desktop:   s.capture(ctx, url, desktopOpts),
		Mobile:    s.capture(ctx, url, mobileOpts),
		Timestamp: now,
	}
}

// Batch captures a list of URLs into outputDir with numbered filenames.
// Failed URLs become success=false records, they do not abort the batch.
// progress, when non-nil, is called before each URL.
func (s *Service) Batch(ctx context.Context, urls []string, outputDir string, opts Options, progress func(current, total int, url string)) []*Result {
	if outputDir == "" {
		outputDir = s.outputDir
	}

	results := make([]*Result, 0, len(urls))
	for i, url := range urls {
		log.Printf("[%d/%d] Capturing: %s", i+1, len(urls), url)
		if progress != nil {
			progress(i+1, len(urls), url)
		}

		o := opts
		o.Output = filepath.Join(outputDir, fmt.Sprintf("%03d_%s", i+1, SafeFilename(url, "", time.Now(), o.Format)))

		result := s.capture(ctx, url, o)
		results = append(results, result)

		if result.Success {
			log.Printf("  ✓ Saved: %s (%.2f MB)", result.Output, result.FileSizeMB)
		} else {
			log.Printf("  ✗ Error: %s", result.Error)
		}
	}

	return results
}

// SEOAudit captures every URL (client plus competitors) into a timestamped
// audit directory and writes a report.json alongside the screenshots.
func (s *Service) SEOAudit(ctx context.Context, urls []string, outputDir string, includeMobile bool) (*AuditResult, error) {
	now := time.Now()
	if outputDir == "" {
		outputDir = s.outputDir
	}

	auditDir := filepath.Join(outputDir, "seo_audit_"+now.Format(timestampLayout))
	if err := os.MkdirAll(auditDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	result := &AuditResult{
		AuditDir:  auditDir,
		URLs:      make([]*BothResult, 0, len(urls)),
		Timestamp: now,
	}

	for i, url := range urls {
		log.Printf("[%d/%d] Capturing: %s", i+1, len(urls), url)

		var item *BothResult
		if includeMobile {
			item = s.CaptureBoth(ctx, url, auditDir)
		} else {
			opts := DefaultOptions()
			opts.Width = 1920
			opts.Output = filepath.Join(auditDir, SafeFilename(url, "_desktop", time.Now(), FormatPNG))
			item = &BothResult{
				URL:       url,
				Desktop:   s.capture(ctx, url, opts),
				Timestamp: time.Now(),
			}
		}

		result.URLs = append(result.URLs, item)
	}

	reportPath := filepath.Join(auditDir, "report.json")
	if err := report.WriteJSON(reportPath, result); err != nil {
		return nil, err
	}
	result.Report = reportPath

	return result, nil
}

// SERPScreenshot captures a search results page for a query. The page gets
// an extra delay so results finish rendering.
func (s *Service) SERPScreenshot(ctx context.Context, query, engine, region, output string) *Result {
	if engine == "" {
		engine = EngineYandex
	}

	serpURL, err := SERPURL(query, engine, region)
	if err != nil {
		return &Result{
			URL:       "",
			Error:     err.Error(),
			Query:     query,
			Engine:    engine,
			Region:    region,
			Timestamp: time.Now(),
		}
	}

	if output == "" {
		name := fmt.Sprintf("serp_%s_%s_%s.png", engine, SafeQuery(query), time.Now().Format(timestampLayout))
		output = filepath.Join(s.outputDir, name)
	}

	opts := DefaultOptions()
	opts.Output = output
	opts.Delay = 2 * time.Second
	opts.Stealth = true

	result := s.capture(ctx, serpURL, opts)
	result.Query = query
	result.Engine = engine
	result.Region = region

	return result
}

// SERPBatch captures a list of queries into a timestamped directory, pausing
// between queries.
func (s *Service) SERPBatch(ctx context.Context, queries []string, engine, region, outputDir string) (*SERPBatchResult, error) {
	now := time.Now()
	if engine == "" {
		engine = EngineYandex
	}
	if outputDir == "" {
		outputDir = s.outputDir
	}

	serpDir := filepath.Join(outputDir, fmt.Sprintf("serp_%s_%s", engine, now.Format(timestampLayout)))
	if err := os.MkdirAll(serpDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create serp directory: %w", err)
	}

	result := &SERPBatchResult{
		OutputDir: serpDir,
		Engine:    engine,
		Region:    region,
		Queries:   make([]*Result, 0, len(queries)),
		Timestamp: now,
	}

	for i, query := range queries {
		log.Printf("[%d/%d] SERP: %s", i+1, len(queries), query)

		output := filepath.Join(serpDir, fmt.Sprintf("%03d_%s.png", i+1, SafeQuery(query)))
		item := s.SERPScreenshot(ctx, query, engine, region, output)
		result.Queries = append(result.Queries, item)

		if i < len(queries)-1 {
			select {
			case <-time.After(serpPause):
			case <-ctx.Done():
				return result, nil
			}
		}
	}

	return result, nil
}

// LayoutAudit captures a URL at each breakpoint width and writes an HTML
// comparison page next to the screenshots. Widths at or below 425px are
// captured with mobile emulation.
func (s *Service) LayoutAudit(ctx context.Context, url string, breakpoints []int, outputDir string) (*LayoutResult, error) {
	now := time.Now()
	if len(breakpoints) == 0 {
		breakpoints = DefaultBreakpoints
	}
	if outputDir == "" {
		outputDir = s.outputDir
	}

	layoutDir := filepath.Join(outputDir, "layout_audit_"+now.Format(timestampLayout))
	if err := os.MkdirAll(layoutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create layout directory: %w", err)
	}

	result := &LayoutResult{
		URL:         url,
		OutputDir:   layoutDir,
		Breakpoints: make([]*Result, 0, len(breakpoints)),
		Timestamp:   now,
	}

	for _, width := range breakpoints {
		log.Printf("  Capturing %dpx...", width)

		opts := DefaultOptions()
		opts.Width = width
		opts.Height = 800
		opts.Mobile = width <= 425
		opts.Output = filepath.Join(layoutDir, fmt.Sprintf("viewport_%dpx.png", width))

		item := s.capture(ctx, url, opts)
		item.Breakpoint = width
		result.Breakpoints = append(result.Breakpoints, item)
	}

	data := report.LayoutData{
		URL:       url,
		Timestamp: now.Format(time.RFC3339),
	}
	for _, bp := range result.Breakpoints {
		if !bp.Success {
			continue
		}
		data.Items = append(data.Items, report.LayoutItem{
			Breakpoint: bp.Breakpoint,
			Image:      filepath.Base(bp.Output),
			PageWidth:  bp.PageWidth,
			PageHeight: bp.PageHeight,
		})
	}

	reportPath := filepath.Join(layoutDir, "comparison.html")
	if err := report.WriteLayoutHTML(reportPath, data); err != nil {
		return nil, err
	}
	result.HTMLReport = reportPath

	return result, nil
}

// MonitorSnapshot captures a URL into a per-URL file pair under the
// monitoring directory and compares file sizes against the previous
// snapshot. A size delta over 1% counts as a change.
func (s *Service) MonitorSnapshot(ctx context.Context, url, outputDir string) *Result {
	if outputDir == "" {
		outputDir = s.outputDir
	}

	monitorDir := filepath.Join(outputDir, "monitoring")
	if err := os.MkdirAll(monitorDir, 0o755); err != nil {
		return &Result{
			URL:       url,
			Error:     fmt.Sprintf("failed to create monitoring directory: %v", err),
			Timestamp: time.Now(),
		}
	}

	currentFile := filepath.Join(monitorDir, monitorBaseName(url)+"_current.png")
	previousFile := filepath.Join(monitorDir, monitorBaseName(url)+"_previous.png")

	if _, err := os.Stat(currentFile); err == nil {
		os.Remove(previousFile)
		if err := os.Rename(currentFile, previousFile); err != nil {
			log.Printf("Warning: failed to rotate monitoring snapshot: %v", err)
		}
	}

	opts := DefaultOptions()
	opts.Width = 1920
	opts.Output = currentFile

	result := s.capture(ctx, url, opts)

	if info, err := os.Stat(previousFile); err == nil && result.Success {
		prevSize := info.Size()
		diff := result.FileSize - prevSize
		if diff < 0 {
			diff = -diff
		}

		var pct float64
		if prevSize > 0 {
			pct = float64(diff) / float64(prevSize) * 100
		}

		result.Comparison = &Comparison{
			PreviousFile:      previousFile,
			PreviousSize:      prevSize,
			SizeDifference:    diff,
			SizeDifferencePct: math.Round(pct*100) / 100,
			Changed:           pct > 1,
		}
	}

	return result
}

// VisualAudit builds a client-vs-competitors audit: desktop and mobile
// screenshots of every site, optional SERP captures, a self-contained HTML
// report, and the raw data as JSON.
func (s *Service) VisualAudit(ctx context.Context, clientURL string, competitorURLs, serpQueries []string, outputDir string, includeMobile bool) (*VisualAuditResult, error) {
	now := time.Now()
	if outputDir == "" {
		outputDir = filepath.Join(s.outputDir, "seo_audit")
	}

	screenshotsDir := filepath.Join(outputDir, "screenshots")
	if err := os.MkdirAll(screenshotsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	result := &VisualAuditResult{
		Timestamp:   now,
		Competitors: make([]*BothResult, 0, len(competitorURLs)),
	}

	log.Printf("📸 Capturing client: %s", clientURL)
	if includeMobile {
		result.Client = s.CaptureBoth(ctx, clientURL, filepath.Join(screenshotsDir, "client"))
	} else {
		result.Client = &BothResult{
			URL:       clientURL,
			Desktop:   s.capture(ctx, clientURL, DefaultOptions()),
			Timestamp: now,
		}
	}

	for i, compURL := range competitorURLs {
		log.Printf("📸 [%d/%d] Competitor: %s", i+1, len(competitorURLs), compURL)

		var item *BothResult
		if includeMobile {
			item = s.CaptureBoth(ctx, compURL, filepath.Join(screenshotsDir, fmt.Sprintf("competitor_%d", i+1)))
		} else {
			item = &BothResult{
				URL:       compURL,
				Desktop:   s.capture(ctx, compURL, DefaultOptions()),
				Timestamp: time.Now(),
			}
		}
		result.Competitors = append(result.Competitors, item)
	}

	if len(serpQueries) > 0 {
		log.Println("🔍 Capturing SERP...")
		for i, query := range serpQueries {
			item := s.SERPScreenshot(ctx, query, EngineYandex, "", "")
			result.SERP = append(result.SERP, item)

			if i < len(serpQueries)-1 {
				select {
				case <-time.After(serpPause):
				case <-ctx.Done():
				}
			}
		}
	}

	htmlPath := filepath.Join(outputDir, "visual_audit.html")
	if err := report.WriteVisualAuditHTML(htmlPath, visualAuditData(result, now)); err != nil {
		return nil, err
	}
	result.HTMLReport = htmlPath

	jsonPath := filepath.Join(outputDir, "audit_data.json")
	if err := report.WriteJSON(jsonPath, result); err != nil {
		return nil, err
	}
	result.JSONReport = jsonPath

	return result, nil
}

func visualAuditData(result *VisualAuditResult, now time.Time) report.VisualAuditData {
	data := report.VisualAuditData{
		Date:   now.Format("02.01.2006 15:04"),
		Client: siteScreenshots(result.Client),
	}

	for _, comp := range result.Competitors {
		data.Competitors = append(data.Competitors, siteScreenshots(comp))
	}

	for _, serp := range result.SERP {
		data.SERP = append(data.SERP, report.SERPItem{
			Query:  serp.Query,
			Engine: serp.Engine,
			Image:  serp.Output,
		})
	}

	return data
}

func siteScreenshots(both *BothResult) report.SiteScreenshots {
	site := report.SiteScreenshots{URL: both.URL}

	if both.Desktop != nil && both.Desktop.Success {
		site.DesktopImage = both.Desktop.Output
		site.DesktopWidth = both.Desktop.PageWidth
		site.DesktopHeight = both.Desktop.PageHeight
	}
	if both.Mobile != nil && both.Mobile.Success {
		site.MobileImage = both.Mobile.Output
		site.MobileWidth = both.Mobile.PageWidth
		site.MobileHeight = both.Mobile.PageHeight
	}

	return site
}

func (s *Service) capture(ctx context.Context, url string, opts Options) *Result {
	now := time.Now()
	opts = opts.normalized(s.width, s.height)

	result := &Result{
		URL:       url,
		Mobile:    opts.Mobile,
		Timestamp: now,
	}

	output := opts.Output
	if output == "" {
		suffix := "_desktop"
		if opts.Mobile {
			suffix = "_mobile"
		}
		output = filepath.Join(s.outputDir, SafeFilename(url, suffix, now, opts.Format))
	}

	captured, err := s.client.Capture(ctx, url, opts.browserOptions(s.timeout, s.quality))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		result.Error = fmt.Sprintf("failed to create output directory: %v", err)
		return result
	}

	if err := os.WriteFile(output, captured.Data, 0o644); err != nil {
		result.Error = fmt.Sprintf("failed to write %s: %v", output, err)
		return result
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		abs = output
	}

	width, height := opts.Width, opts.Height
	if opts.Mobile {
		width, height = browser.MobileViewportWidth, browser.MobileViewportHeight
	}

	size := int64(len(captured.Data))

	result.Success = true
	result.Output = abs
	result.Format = opts.Format
	result.PageWidth = captured.Width
	result.PageHeight = captured.Height
	result.Title = captured.Title
	result.FileSize = size
	result.FileSizeMB = math.Round(float64(size)/1024/1024*100) / 100
	result.Viewport = fmt.Sprintf("%dx%d", width, height)

	return result
}
