package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artvision/snapvision/internal/browser"
)

// fakeClient returns canned capture results and records the options of the
// last capture.
type fakeClient struct {
	data     []byte
	err      error
	lastURL  string
	lastOpts browser.CaptureOptions
	calls    int
}

func (f *fakeClient) IsRunning() bool     { return true }
func (f *fakeClient) GetEndpoint() string { return "ws://127.0.0.1:9222" }

func (f *fakeClient) Capture(ctx context.Context, url string, opts browser.CaptureOptions) (*browser.CaptureResult, error) {
	f.calls++
	f.lastURL = url
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	data := f.data
	if data == nil {
		data = []byte("image-data")
	}
	return &browser.CaptureResult{
		Data:   data,
		Title:  "Example Page",
		Width:  opts.Width,
		Height: 3000,
	}, nil
}

func (f *fakeClient) GetPageInfo(ctx context.Context, url string, opts browser.PageOptions) (*browser.PageInfo, error) {
	return &browser.PageInfo{URL: url, Title: "Example Page", Width: 1280, Height: 3000}, nil
}

func newTestService(t *testing.T, client browser.Client) *Service {
	t.Helper()
	return NewService(client, t.TempDir(), 5*time.Second, 90)
}

func TestCaptureURL(t *testing.T) {
	client := &fakeClient{data: []byte("png-bytes")}
	service := newTestService(t, client)

	result := service.CaptureURL(context.Background(), "https://example.com", DefaultOptions())

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.Format != FormatPNG {
		t.Errorf("expected png format, got %s", result.Format)
	}
	if result.Title != "Example Page" {
		t.Errorf("expected title, got %q", result.Title)
	}
	if result.PageHeight != 3000 {
		t.Errorf("expected page height 3000, got %d", result.PageHeight)
	}
	if result.Viewport != "1280x800" {
		t.Errorf("expected viewport 1280x800, got %s", result.Viewport)
	}
	if result.FileSize != int64(len("png-bytes")) {
		t.Errorf("unexpected file size %d", result.FileSize)
	}

	data, err := os.ReadFile(result.Output)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if !bytes.Equal(data, []byte("png-bytes")) {
		t.Errorf("output file content mismatch")
	}
	if !strings.Contains(filepath.Base(result.Output), "_desktop_") {
		t.Errorf("expected desktop suffix in %s", result.Output)
	}
}

func TestCaptureURLMobileViewport(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	opts := DefaultOptions()
	opts.Mobile = true
	result := service.CaptureURL(context.Background(), "https://example.com", opts)

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if !result.Mobile {
		t.Errorf("expected mobile flag")
	}
	if result.Viewport != "375x812" {
		t.Errorf("expected mobile viewport, got %s", result.Viewport)
	}
	if !client.lastOpts.Mobile {
		t.Errorf("expected mobile option passed to browser")
	}
	if !strings.Contains(filepath.Base(result.Output), "_mobile_") {
		t.Errorf("expected mobile suffix in %s", result.Output)
	}
}

func TestCaptureURLBrowserError(t *testing.T) {
	client := &fakeClient{err: errors.New("navigation timeout")}
	service := newTestService(t, client)

	result := service.CaptureURL(context.Background(), "https://example.com", DefaultOptions())

	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.Error != "navigation timeout" {
		t.Errorf("expected browser error, got %q", result.Error)
	}
	if result.Output != "" {
		t.Errorf("expected no output path on failure")
	}
}

func TestCaptureBoth(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result := service.CaptureBoth(context.Background(), "https://example.com", "")

	if result.Desktop == nil || !result.Desktop.Success {
		t.Fatalf("expected desktop capture")
	}
	if result.Mobile == nil || !result.Mobile.Success {
		t.Fatalf("expected mobile capture")
	}
	if client.calls != 2 {
		t.Errorf("expected 2 captures, got %d", client.calls)
	}

	desktop := filepath.Base(result.Desktop.Output)
	mobile := filepath.Base(result.Mobile.Output)
	if !strings.HasSuffix(desktop, "_desktop.png") {
		t.Errorf("unexpected desktop name %s", desktop)
	}
	if !strings.HasSuffix(mobile, "_mobile.png") {
		t.Errorf("unexpected mobile name %s", mobile)
	}

	// Both files share the same stem
	stem := strings.TrimSuffix(desktop, "_desktop.png")
	if !strings.HasPrefix(mobile, stem) {
		t.Errorf("expected shared stem, got %s and %s", desktop, mobile)
	}
}

func TestCaptureBothDesktopWidth(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	_ = service.CaptureBoth(context.Background(), "https://example.com", "")

	// Mobile runs last; the desktop capture came first at 1920
	if client.lastOpts.Width != browser.MobileViewportWidth {
		t.Errorf("expected final capture to be mobile, width %d", client.lastOpts.Width)
	}
}

func TestBatch(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	urls := []string{"https://example.com", "https://example.org"}
	var seen []string
	results := service.Batch(context.Background(), urls, "", DefaultOptions(), func(current, total int, url string) {
		seen = append(seen, url)
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(seen) != 2 {
		t.Errorf("expected progress callback for each URL, got %d", len(seen))
	}

	for i, result := range results {
		if !result.Success {
			t.Errorf("result %d failed: %s", i, result.Error)
		}
	}

	// Numbered filenames keep the input order
	if !strings.HasPrefix(filepath.Base(results[0].Output), "001_") {
		t.Errorf("unexpected first name %s", results[0].Output)
	}
	if !strings.HasPrefix(filepath.Base(results[1].Output), "002_") {
		t.Errorf("unexpected second name %s", results[1].Output)
	}
}

func TestBatchContinuesAfterFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	service := newTestService(t, client)

	results := service.Batch(context.Background(), []string{"https://a.com", "https://b.com"}, "", DefaultOptions(), nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Success {
			t.Errorf("expected failure records")
		}
	}
}

func TestSEOAudit(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.SEOAudit(context.Background(), []string{"https://example.com"}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.URLs) != 1 {
		t.Fatalf("expected 1 audited URL, got %d", len(result.URLs))
	}
	if result.URLs[0].Mobile == nil {
		t.Errorf("expected mobile capture")
	}
	if !strings.Contains(result.AuditDir, "seo_audit_") {
		t.Errorf("unexpected audit dir %s", result.AuditDir)
	}

	if _, err := os.Stat(result.Report); err != nil {
		t.Errorf("report.json not written: %v", err)
	}
}

func TestSEOAuditDesktopOnly(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.SEOAudit(context.Background(), []string{"https://example.com"}, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.URLs[0].Mobile != nil {
		t.Errorf("expected no mobile capture")
	}
	if client.calls != 1 {
		t.Errorf("expected 1 capture, got %d", client.calls)
	}
}

func TestSERPScreenshot(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result := service.SERPScreenshot(context.Background(), "купить окна", "", "213", "")

	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if result.Engine != EngineYandex {
		t.Errorf("expected yandex default, got %s", result.Engine)
	}
	if result.Query != "купить окна" {
		t.Errorf("query not set: %q", result.Query)
	}
	if !strings.Contains(client.lastURL, "yandex.ru/search") {
		t.Errorf("unexpected SERP URL %s", client.lastURL)
	}
	if !strings.Contains(client.lastURL, "lr=213") {
		t.Errorf("expected region in URL %s", client.lastURL)
	}
	if !client.lastOpts.Stealth {
		t.Errorf("expected stealth mode for SERP captures")
	}
	if client.lastOpts.Delay != 2*time.Second {
		t.Errorf("expected 2s render delay, got %s", client.lastOpts.Delay)
	}
	if !strings.HasPrefix(filepath.Base(result.Output), "serp_yandex_") {
		t.Errorf("unexpected output name %s", result.Output)
	}
}

func TestLayoutAudit(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.LayoutAudit(context.Background(), "https://example.com", []int{375, 1440}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Breakpoints) != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", len(result.Breakpoints))
	}

	if result.Breakpoints[0].Breakpoint != 375 {
		t.Errorf("expected breakpoint 375, got %d", result.Breakpoints[0].Breakpoint)
	}
	if filepath.Base(result.Breakpoints[0].Output) != "viewport_375px.png" {
		t.Errorf("unexpected name %s", result.Breakpoints[0].Output)
	}

	// 1440 is the last capture and must not be mobile
	if client.lastOpts.Mobile {
		t.Errorf("expected desktop emulation at 1440px")
	}

	if _, err := os.Stat(result.HTMLReport); err != nil {
		t.Errorf("comparison.html not written: %v", err)
	}
}

func TestLayoutAuditDefaultBreakpoints(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.LayoutAudit(context.Background(), "https://example.com", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Breakpoints) != len(DefaultBreakpoints) {
		t.Errorf("expected %d breakpoints, got %d", len(DefaultBreakpoints), len(result.Breakpoints))
	}
}

func TestMonitorSnapshotFirstRun(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result := service.MonitorSnapshot(context.Background(), "https://example.com", "")

	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if result.Comparison != nil {
		t.Errorf("expected no comparison on first run")
	}
	if !strings.HasSuffix(result.Output, "_current.png") {
		t.Errorf("unexpected output %s", result.Output)
	}
}

func TestMonitorSnapshotDetectsChange(t *testing.T) {
	client := &fakeClient{data: []byte("aaaaaaaaaa")} // 10 bytes
	service := newTestService(t, client)

	first := service.MonitorSnapshot(context.Background(), "https://example.com", "")
	if !first.Success {
		t.Fatalf("first snapshot failed: %s", first.Error)
	}

	client.data = []byte("aaaaaaaaaaaaaaa") // 15 bytes, +50%
	second := service.MonitorSnapshot(context.Background(), "https://example.com", "")
	if !second.Success {
		t.Fatalf("second snapshot failed: %s", second.Error)
	}

	if second.Comparison == nil {
		t.Fatalf("expected comparison on second run")
	}
	if second.Comparison.PreviousSize != 10 {
		t.Errorf("expected previous size 10, got %d", second.Comparison.PreviousSize)
	}
	if second.Comparison.SizeDifference != 5 {
		t.Errorf("expected difference 5, got %d", second.Comparison.SizeDifference)
	}
	if second.Comparison.SizeDifferencePct != 50 {
		t.Errorf("expected 50%%, got %v", second.Comparison.SizeDifferencePct)
	}
	if !second.Comparison.Changed {
		t.Errorf("expected change detection")
	}

	// Old snapshot rotated to previous
	if _, err := os.Stat(second.Comparison.PreviousFile); err != nil {
		t.Errorf("previous snapshot missing: %v", err)
	}
}

func TestMonitorSnapshotSmallDeltaIsNotChange(t *testing.T) {
	client := &fakeClient{data: bytes.Repeat([]byte("a"), 1000)}
	service := newTestService(t, client)

	_ = service.MonitorSnapshot(context.Background(), "https://example.com", "")

	client.data = bytes.Repeat([]byte("a"), 1005) // +0.5%
	second := service.MonitorSnapshot(context.Background(), "https://example.com", "")

	if second.Comparison == nil {
		t.Fatalf("expected comparison")
	}
	if second.Comparison.Changed {
		t.Errorf("0.5%% delta must not count as a change")
	}
}

func TestVisualAudit(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.VisualAudit(context.Background(), "https://client.com",
		[]string{"https://comp.com"}, nil, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Client == nil || !result.Client.Desktop.Success {
		t.Fatalf("expected client capture")
	}
	if len(result.Competitors) != 1 {
		t.Fatalf("expected 1 competitor, got %d", len(result.Competitors))
	}

	if _, err := os.Stat(result.HTMLReport); err != nil {
		t.Errorf("visual_audit.html not written: %v", err)
	}
	if _, err := os.Stat(result.JSONReport); err != nil {
		t.Errorf("audit_data.json not written: %v", err)
	}

	// Screenshots land in per-site directories
	if !strings.Contains(result.Client.Desktop.Output, filepath.Join("screenshots", "client")) {
		t.Errorf("unexpected client path %s", result.Client.Desktop.Output)
	}
	if !strings.Contains(result.Competitors[0].Desktop.Output, "competitor_1") {
		t.Errorf("unexpected competitor path %s", result.Competitors[0].Desktop.Output)
	}
}

func TestCaptureURLUsesConfiguredViewport(t *testing.T) {
	client := &fakeClient{}
	service := NewServiceWithConfig(client, ServiceConfig{
		OutputDir: t.TempDir(),
		Timeout:   5 * time.Second,
		Quality:   90,
		Width:     1920,
		Height:    1080,
	})

	result := service.CaptureURL(context.Background(), "https://example.com", DefaultOptions())

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if client.lastOpts.Width != 1920 || client.lastOpts.Height != 1080 {
		t.Errorf("expected 1920x1080 passed to browser, got %dx%d", client.lastOpts.Width, client.lastOpts.Height)
	}
	if result.Viewport != "1920x1080" {
		t.Errorf("expected viewport 1920x1080, got %s", result.Viewport)
	}

	// An explicit width still wins over the configured default
	opts := DefaultOptions()
	opts.Width = 800
	service.CaptureURL(context.Background(), "https://example.com", opts)

	if client.lastOpts.Width != 800 {
		t.Errorf("expected explicit width 800, got %d", client.lastOpts.Width)
	}
}

func TestSERPBatchSingleQuery(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	result, err := service.SERPBatch(context.Background(), []string{"купить окна"}, "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Queries) != 1 {
		t.Fatalf("expected 1 query result, got %d", len(result.Queries))
	}
	if result.Engine != EngineYandex {
		t.Errorf("expected yandex default, got %s", result.Engine)
	}
	if _, err := os.Stat(result.OutputDir); err != nil {
		t.Errorf("serp directory not created: %v", err)
	}
}

func TestSERPBatchOutputDirError(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	// A regular file where the output directory should go
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := service.SERPBatch(context.Background(), []string{"query"}, "", "", blocker); err == nil {
		t.Fatal("expected error when serp directory cannot be created")
	}
	if client.calls != 0 {
		t.Errorf("expected no captures after directory error, got %d", client.calls)
	}
}

func TestMonitorSnapshotOutputDirError(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(t, client)

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := service.MonitorSnapshot(context.Background(), "https://example.com", blocker)

	if result.Success {
		t.Fatal("expected failure when monitoring directory cannot be created")
	}
	if !strings.Contains(result.Error, "monitoring directory") {
		t.Errorf("unexpected error: %s", result.Error)
	}
	if client.calls != 0 {
		t.Errorf("expected no captures after directory error, got %d", client.calls)
	}
}
