package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/artvision/snapvision/internal/api"
	"github.com/artvision/snapvision/internal/browser"
	"github.com/artvision/snapvision/internal/capture"
	"github.com/artvision/snapvision/internal/config"
	"github.com/artvision/snapvision/internal/nats"
	"github.com/artvision/snapvision/internal/queue"
	"github.com/artvision/snapvision/internal/security"
	"github.com/artvision/snapvision/internal/telegram"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Parse CLI flags
	cfg := config.ParseFlags()

	// Handle --version and --help
	config.HandleFlags(cfg)

	// Banner
	log.Printf("Starting %s v%s (capture + queue)", config.AppName, config.Version)

	// Chrome setup
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		var err error
		chromeBin, err = browser.InstallChrome(context.Background(), cfg.ChromeRevision)
		if err != nil {
			log.Fatalf("Failed to install Chrome: %v", err)
		}
	}

	browserManager := browser.NewManager(chromeBin)
	if err := browserManager.Start(); err != nil {
		log.Fatalf("Failed to start Chrome: %v", err)
	}
	defer func() {
		if err := browserManager.Stop(); err != nil {
			log.Printf("Failed to stop Chrome: %v", err)
		}
	}()

	// Capture service shared by the API, the queue processor and the bot
	service := capture.NewServiceWithConfig(browserManager, capture.ServiceConfig{
		OutputDir: cfg.OutputDir,
		Timeout:   cfg.CaptureTimeout,
		Quality:   cfg.JPEGQuality,
		Width:     cfg.ViewportWidth,
		Height:    cfg.ViewportHeight,
	})

	// NATS + JetStream setup
	var natsServer *nats.Server
	var queueManager *queue.Manager

	if cfg.WithNats {
		log.Printf("Setting up NATS JetStream...")

		var err error
		natsServer, err = nats.NewServer(nats.ServerConfig{
			BinPath:  cfg.NatsBin,
			StoreDir: cfg.NatsStore,
			URL:      cfg.NatsURL,
			AutoDL:   cfg.NatsAutoDL,
		})
		if err != nil {
			log.Fatalf("Failed to create NATS server: %v", err)
		}

		ctx := context.Background()
		if err := natsServer.Start(ctx); err != nil {
			log.Fatalf("Failed to start NATS server: %v", err)
		}
		defer func() { _ = natsServer.Stop() }()

		// Create queue manager
		js := natsServer.GetJetStream()
		queueManager, err = queue.NewManager(js)
		if err != nil {
			log.Fatalf("Failed to create queue manager: %v", err)
		}

		// Create and start processor
		processor := queue.NewCaptureProcessor(service)
		if err := queueManager.Start(processor); err != nil {
			log.Fatalf("Failed to start queue processor: %v", err)
		}
		defer queueManager.Stop()
	}

	// Telegram bot: long polling by default, webhook route when asked
	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot = telegram.NewBot(cfg.TelegramToken, service)
		if !cfg.TelegramWebhook {
			go func() {
				if err := bot.Run(); err != nil {
					log.Printf("Telegram bot stopped: %v", err)
				}
			}()
		}
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      config.AppName,
		ErrorHandler: api.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	if cfg.AllowedIPs != "" {
		allowed := strings.Split(cfg.AllowedIPs, ",")
		app.Use(security.IPWhitelistMiddleware(allowed))
		log.Printf("IP whitelist enabled for %d address(es)", len(allowed))
	}

	// Setup routes
	api.SetupRoutes(app, browserManager, service)

	if bot != nil && cfg.TelegramWebhook {
		app.Post("/telegram/webhook", bot.Webhook())
	}

	if queueManager != nil {
		// Setup job routes with security configuration
		routeConfig := api.RouteConfig{
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			IdempotencyTTL:    cfg.IdempotencyTTL,
			BaseURL:           cfg.BaseURL,
			MaxJobTimeout:     cfg.MaxJobTimeout,
			ResultTTL:         cfg.ResultTTL,
		}
		api.SetupJobRoutesWithConfig(app, queueManager, routeConfig)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := browserManager.Stop(); err != nil {
			log.Printf("Failed to stop Chrome: %v", err)
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Chrome CDP endpoint: %s", browserManager.GetEndpoint())
	if cfg.WithNats {
		log.Printf("NATS JetStream enabled at %s", cfg.NatsURL)
	}
	if cfg.TelegramToken != "" {
		if cfg.TelegramWebhook {
			log.Printf("Telegram webhook handler mounted at /telegram/webhook")
		} else {
			log.Printf("Telegram bot polling enabled")
		}
	}

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
