package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/capture"
	"github.com/artvision/snapvision/internal/telegram"
)

const usage = `Snapvision - full-page screenshots, PDFs and site audits

Usage:
  snapvision <command> [flags] [args]

Commands:
  capture <url>          capture a single page (png, jpeg or pdf)
  both <url>             capture desktop and mobile variants
  batch <url...>         capture multiple pages (-file to read URLs from a file)
  audit <url...>         SEO audit with desktop+mobile screenshots and a JSON report
  serp <query...>        capture search results pages (yandex or google)
  layout <url>           capture a page at responsive breakpoints with an HTML report
  monitor <url...>       monitoring snapshots with change detection
  visual <client-url>    visual audit: client vs competitors vs SERP, HTML report
  bot                    run the Telegram bot

Run 'snapvision <command> -h' for command flags.
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "capture":
		runCapture(args)
	case "both":
		runBoth(args)
	case "batch":
		runBatch(args)
	case "audit":
		runAudit(args)
	case "serp":
		runSERP(args)
	case "layout":
		runLayout(args)
	case "monitor":
		runMonitor(args)
	case "visual":
		runVisual(args)
	case "bot":
		runBot(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// commonFlags registers the flags shared by every capture command.
type commonFlags struct {
	chromeBin string
	outputDir string
	timeout   time.Duration
	quality   int
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.chromeBin, "chrome-bin", "", "path to a Chrome binary (auto-download if empty)")
	fs.StringVar(&f.outputDir, "output-dir", "./screenshots", "directory for screenshots and reports")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "navigation timeout per capture")
	fs.IntVar(&f.quality, "jpeg-quality", 90, "JPEG quality (1-100)")
}

// newService starts Chrome and returns a capture service plus a shutdown func.
func (f *commonFlags) newService() (*capture.Service, func()) {
	bin := f.chromeBin
	if bin == "" {
		var err error
		bin, err = browser.InstallChrome(context.Background(), 0)
		if err != nil {
			log.Fatalf("Failed to install Chrome: %v", err)
		}
	}

	manager := browser.NewManager(bin)
	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start Chrome: %v", err)
	}

	service := capture.NewService(manager, f.outputDir, f.timeout, f.quality)
	return service, func() {
		if err := manager.Stop(); err != nil {
			log.Printf("Failed to stop Chrome: %v", err)
		}
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func runCapture(args []string) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	output := fs.String("output", "", "output file path (auto-generated if empty)")
	format := fs.String("format", "png", "output format: png, jpeg or pdf")
	width := fs.Int("width", 1280, "viewport width")
	height := fs.Int("height", 800, "viewport height")
	mobile := fs.Bool("mobile", false, "emulate a mobile device")
	noFullPage := fs.Bool("no-fullpage", false, "capture the viewport only")
	keepSticky := fs.Bool("keep-sticky", false, "keep fixed and sticky elements in place")
	delay := fs.Duration("delay", 0, "extra wait after page load")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: snapvision capture [flags] <url>")
	}

	service, shutdown := common.newService()
	defer shutdown()

	opts := capture.DefaultOptions()
	opts.Output = *output
	opts.Format = *format
	opts.Width = *width
	opts.Height = *height
	opts.Mobile = *mobile
	opts.FullPage = !*noFullPage
	opts.HideSticky = !*keepSticky
	opts.Delay = *delay

	result := service.CaptureURL(context.Background(), fs.Arg(0), opts)
	printJSON(result)
	if !result.Success {
		shutdown()
		os.Exit(1)
	}
}

func runBoth(args []string) {
	fs := flag.NewFlagSet("both", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: snapvision both [flags] <url>")
	}

	service, shutdown := common.newService()
	defer shutdown()

	printJSON(service.CaptureBoth(context.Background(), fs.Arg(0), common.outputDir))
}

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	file := fs.String("file", "", "file with one URL per line")
	format := fs.String("format", "png", "output format: png, jpeg or pdf")
	mobile := fs.Bool("mobile", false, "emulate a mobile device")
	fs.Parse(args)

	urls := fs.Args()
	if *file != "" {
		fromFile, err := readLines(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		log.Fatal("Usage: snapvision batch [flags] <url...> (or -file urls.txt)")
	}

	service, shutdown := common.newService()
	defer shutdown()

	opts := capture.DefaultOptions()
	opts.Format = *format
	opts.Mobile = *mobile

	results := service.Batch(context.Background(), urls, common.outputDir, opts, nil)
	printJSON(results)
}

func runAudit(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	file := fs.String("file", "", "file with one URL per line")
	desktopOnly := fs.Bool("desktop-only", false, "skip mobile screenshots")
	fs.Parse(args)

	urls := fs.Args()
	if *file != "" {
		fromFile, err := readLines(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		log.Fatal("Usage: snapvision audit [flags] <url...> (or -file urls.txt)")
	}

	service, shutdown := common.newService()
	defer shutdown()

	result, err := service.SEOAudit(context.Background(), urls, "", !*desktopOnly)
	if err != nil {
		shutdown()
		log.Fatalf("Audit failed: %v", err)
	}
	printJSON(result)
}

func runSERP(args []string) {
	fs := flag.NewFlagSet("serp", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	engine := fs.String("engine", capture.EngineYandex, "search engine: yandex or google")
	region := fs.String("region", "", "region code (Yandex lr / Google gl)")
	output := fs.String("output", "", "output file for a single query")
	fs.Parse(args)

	queries := fs.Args()
	if len(queries) == 0 {
		log.Fatal("Usage: snapvision serp [flags] <query...>")
	}

	service, shutdown := common.newService()
	defer shutdown()

	if len(queries) == 1 {
		result := service.SERPScreenshot(context.Background(), queries[0], *engine, *region, *output)
		printJSON(result)
		if !result.Success {
			shutdown()
			os.Exit(1)
		}
		return
	}

	batch, err := service.SERPBatch(context.Background(), queries, *engine, *region, "")
	if err != nil {
		shutdown()
		log.Fatalf("SERP batch failed: %v", err)
	}
	printJSON(batch)
}

func runLayout(args []string) {
	fs := flag.NewFlagSet("layout", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	breakpoints := fs.String("breakpoints", "", "comma-separated viewport widths (default 320,375,425,768,1024,1440,1920)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: snapvision layout [flags] <url>")
	}

	widths, err := parseBreakpoints(*breakpoints)
	if err != nil {
		log.Fatalf("Invalid breakpoints: %v", err)
	}

	service, shutdown := common.newService()
	defer shutdown()

	result, err := service.LayoutAudit(context.Background(), fs.Arg(0), widths, "")
	if err != nil {
		shutdown()
		log.Fatalf("Layout audit failed: %v", err)
	}
	printJSON(result)
}

func runMonitor(args []string) {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	file := fs.String("file", "", "file with one URL per line")
	fs.Parse(args)

	urls := fs.Args()
	if *file != "" {
		fromFile, err := readLines(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		log.Fatal("Usage: snapvision monitor [flags] <url...> (or -file urls.txt)")
	}

	service, shutdown := common.newService()
	defer shutdown()

	results := make([]*capture.Result, 0, len(urls))
	for _, url := range urls {
		result := service.MonitorSnapshot(context.Background(), url, "")
		results = append(results, result)
		if result.Comparison != nil && result.Comparison.Changed {
			log.Printf("⚠️  %s changed by %.2f%%", url, result.Comparison.SizeDifferencePct)
		}
	}
	printJSON(results)
}

func runVisual(args []string) {
	fs := flag.NewFlagSet("visual", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	competitors := fs.String("competitors", "", "comma-separated competitor URLs")
	queries := fs.String("queries", "", "comma-separated SERP queries")
	desktopOnly := fs.Bool("desktop-only", false, "skip mobile screenshots")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: snapvision visual [flags] <client-url>")
	}

	service, shutdown := common.newService()
	defer shutdown()

	result, err := service.VisualAudit(context.Background(), fs.Arg(0),
		splitList(*competitors), splitList(*queries), "", !*desktopOnly)
	if err != nil {
		shutdown()
		log.Fatalf("Visual audit failed: %v", err)
	}
	printJSON(result)
}

func runBot(args []string) {
	fs := flag.NewFlagSet("bot", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	token := fs.String("token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token ($TELEGRAM_BOT_TOKEN)")
	fs.Parse(args)

	if *token == "" {
		log.Fatal("Telegram token is required (-token or $TELEGRAM_BOT_TOKEN)")
	}

	service, shutdown := common.newService()
	defer shutdown()

	bot := telegram.NewBot(*token, service)
	if err := bot.Run(); err != nil {
		shutdown()
		log.Fatalf("Bot stopped: %v", err)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBreakpoints(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var widths []int
	for _, part := range splitList(s) {
		w, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad width %q: %w", part, err)
		}
		widths = append(widths, w)
	}
	return widths, nil
}
