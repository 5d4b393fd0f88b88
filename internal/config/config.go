package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

const (
	// Version is the current version of Snapvision
	Version = "1"
	// AppName is the application name
	AppName = "Snapvision Server"
)

// Config holds all configuration options for the Snapvision server
type Config struct {
	// Server
	Host    string
	Port    int
	BaseURL string // Full base URL for API responses (e.g., http://localhost:8000)

	// Browser (Chrome via rod launcher)
	ChromeBin      string
	ChromeRevision int

	// Capture defaults
	OutputDir      string
	ViewportWidth  int
	ViewportHeight int
	CaptureTimeout time.Duration
	JPEGQuality    int

	// Queue (NATS JetStream)
	WithNats   bool
	NatsURL    string
	NatsStore  string
	NatsAutoDL bool
	NatsBin    string

	// Telegram
	TelegramToken   string
	TelegramWebhook bool // serve updates over /telegram/webhook instead of polling

	// Security
	AllowedIPs        string        // comma-separated source IPs allowed to call the API (empty allows all)
	RateLimitRequests int           // requests per window
	RateLimitWindow   time.Duration // time window for rate limiting
	IdempotencyTTL    time.Duration // TTL for idempotency keys
	ResultTTL         time.Duration // TTL for job results
	MaxJobTimeout     time.Duration // Maximum allowed job timeout

	// Flags
	ShowVersion bool
	ShowHelp    bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8000,
		BaseURL:           "", // Will be auto-generated if empty
		ChromeBin:         "",
		ChromeRevision:    0,
		OutputDir:         "./screenshots",
		ViewportWidth:     1280,
		ViewportHeight:    800,
		CaptureTimeout:    30 * time.Second,
		JPEGQuality:       90,
		WithNats:          true,
		NatsURL:           "nats://127.0.0.1:4222",
		NatsStore:         "./data/nats",
		NatsAutoDL:        true,
		NatsBin:           "./bin/nats-server",
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhook:   false,
		AllowedIPs:        "",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		IdempotencyTTL:    24 * time.Hour,
		ResultTTL:         7 * 24 * time.Hour, // 7 days
		MaxJobTimeout:     10 * time.Minute,
		ShowVersion:       false,
		ShowHelp:          false,
	}
}

// ParseFlags parses command line flags and returns the config
func ParseFlags() *Config {
	cfg := DefaultConfig()

	// Server flags
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Host address to bind the server")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port number for the server")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Base URL for API responses (e.g., http://localhost:8000)")

	// Browser flags
	flag.StringVar(&cfg.ChromeBin, "chrome-bin", cfg.ChromeBin, "Path to a Chrome/Chromium binary (auto-download if empty)")
	flag.IntVar(&cfg.ChromeRevision, "chrome-revision", cfg.ChromeRevision, "Chromium revision to download (0 uses default)")

	// Capture flags
	flag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for captured screenshots and reports")
	flag.IntVar(&cfg.ViewportWidth, "width", cfg.ViewportWidth, "Default viewport width")
	flag.IntVar(&cfg.ViewportHeight, "height", cfg.ViewportHeight, "Default viewport height")
	flag.DurationVar(&cfg.CaptureTimeout, "capture-timeout", cfg.CaptureTimeout, "Default navigation timeout per capture")
	flag.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality (1-100)")

	// NATS flags
	flag.BoolVar(&cfg.WithNats, "with-nats", cfg.WithNats, "Enable NATS JetStream for capture job queue")
	flag.StringVar(&cfg.NatsURL, "nats-url", cfg.NatsURL, "NATS server URL")
	flag.StringVar(&cfg.NatsStore, "nats-store", cfg.NatsStore, "NATS JetStream storage directory")
	flag.BoolVar(&cfg.NatsAutoDL, "nats-autodl", cfg.NatsAutoDL, "Auto-download NATS server binary")
	flag.StringVar(&cfg.NatsBin, "nats-bin", cfg.NatsBin, "Path to NATS server binary")

	// Telegram flags
	flag.StringVar(&cfg.TelegramToken, "telegram-token", cfg.TelegramToken, "Telegram bot token (enables the bot)")
	flag.BoolVar(&cfg.TelegramWebhook, "telegram-webhook", cfg.TelegramWebhook, "Receive bot updates on /telegram/webhook instead of polling")

	// Security flags
	flag.StringVar(&cfg.AllowedIPs, "allowed-ips", cfg.AllowedIPs, "Comma-separated source IPs allowed to call the API (empty allows all)")
	flag.IntVar(&cfg.RateLimitRequests, "rate-limit", cfg.RateLimitRequests, "Rate limit requests per minute")
	flag.DurationVar(&cfg.MaxJobTimeout, "max-job-timeout", cfg.MaxJobTimeout, "Upper bound on client-requested job timeouts")
	flag.DurationVar(&cfg.ResultTTL, "result-ttl", cfg.ResultTTL, "Retention for finished job results")

	// Other flags
	flag.BoolVar(&cfg.ShowVersion, "version", cfg.ShowVersion, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", cfg.ShowHelp, "Show help message")

	// Custom usage function
	flag.Usage = func() {
		PrintHelp()
	}

	flag.Parse()

	// Auto-generate BaseURL if not provided
	if cfg.BaseURL == "" {
		host := cfg.Host
		if host == "0.0.0.0" {
			host = "localhost"
		}
		cfg.BaseURL = fmt.Sprintf("http://%s:%d", host, cfg.Port)
	}

	// Validate
	if cfg.ViewportWidth < 1 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight < 1 {
		cfg.ViewportHeight = 800
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 90
	}
	if cfg.RateLimitRequests < 1 {
		cfg.RateLimitRequests = 100
	}

	return cfg
}

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("%s v%s\n", AppName, Version)
}

// PrintHelp prints help information
func PrintHelp() {
	fmt.Printf(`%s v%s (full-page capture)

Usage:
  ./server [flags]

Server:
  --host             %s
  --port             %d
  --base-url         %s (auto-generated if empty)

Browser (Chrome):
  --chrome-bin       path to Chrome binary (auto-download if empty)
  --chrome-revision  %d

Capture:
  --output-dir       %s
  --width            %d
  --height           %d
  --capture-timeout  %s
  --jpeg-quality     %d

Queue (NATS JetStream):
  --with-nats        %v
  --nats-url         %s
  --nats-store       %s
  --nats-autodl      %v
  --nats-bin         %s

Telegram:
  --telegram-token   bot token ($TELEGRAM_BOT_TOKEN)
  --telegram-webhook receive updates on /telegram/webhook instead of polling

Security:
  --allowed-ips      comma-separated source IP whitelist (empty allows all)
  --rate-limit       %d (requests per minute)
  --max-job-timeout  %s
  --result-ttl       %s

Other:
  --version          show version
  --help             show this help

`, AppName, Version,
		"0.0.0.0", 8000, "http://localhost:8000",
		0,
		"./screenshots", 1280, 800, "30s", 90,
		true, "nats://127.0.0.1:4222", "./data/nats", true, "./bin/nats-server",
		100, "10m", "168h")
}

// HandleFlags handles version and help flags, exits if needed
func HandleFlags(cfg *Config) {
	if cfg.ShowVersion {
		PrintVersion()
		os.Exit(0)
	}

	if cfg.ShowHelp {
		PrintHelp()
		os.Exit(0)
	}
}
