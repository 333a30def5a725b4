package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spotSignalBot/config"
	"spotSignalBot/internal/adapters/binanceclient"
	"spotSignalBot/internal/adapters/logger"
	"spotSignalBot/internal/adapters/sqlite"
	"spotSignalBot/internal/app"
	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"
	"spotSignalBot/internal/registry"
	"spotSignalBot/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Exchange Clients (Binance Adapter)
	testnetClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.TestnetAPIKey,
		SecretKey:  cfg.TestnetSecretKey,
		UseTestnet: true,
		Logger:     appLogger,
		QuoteAsset: cfg.QuoteAsset,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize testnet Binance client")
		log.Fatalf("FATAL: Failed to initialize testnet Binance client: %v", err)
	}

	var liveClient ports.ExchangeClient
	if cfg.HasLiveCredentials() {
		c, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.LiveAPIKey,
			SecretKey:  cfg.LiveSecretKey,
			UseTestnet: false,
			Logger:     appLogger,
			QuoteAsset: cfg.QuoteAsset,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize live Binance client")
			log.Fatalf("FATAL: Failed to initialize live Binance client: %v", err)
		}
		liveClient = c
	} else {
		appLogger.Warn(context.Background(), "Live API credentials not configured, live mode unavailable")
	}

	selector, err := app.NewExchangeSelector(testnetClient, liveClient)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize exchange selector")
		log.Fatalf("FATAL: Failed to initialize exchange selector: %v", err)
	}
	appLogger.Info(context.Background(), "Exchange clients initialized", map[string]interface{}{"mode": selector.Mode()})

	// 5. Register Bots
	reg := registry.New()
	bot1, err := registry.NewBot("bot1", domain.SingleShot, cfg.Bot1)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to create bot1")
		log.Fatalf("FATAL: Failed to create bot1: %v", err)
	}
	bot2, err := registry.NewBot("bot2", domain.Martingale, cfg.Bot2)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to create bot2")
		log.Fatalf("FATAL: Failed to create bot2: %v", err)
	}
	if err := reg.Add(bot1); err != nil {
		log.Fatalf("FATAL: Failed to register bot1: %v", err)
	}
	if err := reg.Add(bot2); err != nil {
		log.Fatalf("FATAL: Failed to register bot2: %v", err)
	}

	// 6. Initialize Application Service
	service, err := app.NewService(app.Config{
		Logger:      appLogger,
		Exchange:    selector,
		Registry:    reg,
		Ledger:      repo,
		CallTimeout: cfg.ExchangeCallTimeout,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	// 7. Restore persisted ledger state before the monitor starts
	if err := service.Rehydrate(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to restore persisted state")
		log.Fatalf("FATAL: Failed to restore persisted state: %v", err)
	}

	// 8. Initialize HTTP Server
	srv, err := server.NewServer(server.Config{
		Logger:        appLogger,
		Service:       service,
		Exchange:      selector,
		Selector:      selector,
		WebhookSecret: cfg.WebhookSecret,
		PanicPIN:      cfg.PanicPIN,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 9. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go service.Run(ctx, cfg.MonitorInterval)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, err, "HTTP server exited with error")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), err, "Error shutting down HTTP server")
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
