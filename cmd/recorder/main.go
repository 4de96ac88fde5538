package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avelez/ascendex-stream/internal/api"
	"github.com/avelez/ascendex-stream/internal/auth"
	"github.com/avelez/ascendex-stream/internal/config"
	"github.com/avelez/ascendex-stream/internal/database"
	"github.com/avelez/ascendex-stream/internal/recorder"
	"github.com/avelez/ascendex-stream/internal/stream"
	"github.com/avelez/ascendex-stream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"symbols", cfg.Recorder.Symbols,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	var creds *auth.Credentials
	if cfg.API.APIKey != "" {
		creds = &auth.Credentials{Key: cfg.API.APIKey, Secret: cfg.API.APISecret}
	}

	// Verify the configured symbols against the product list
	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithGroupID(cfg.API.GroupID),
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	products, err := apiClient.GetProducts(ctx)
	if err != nil {
		logger.Error("failed to fetch products", "error", err)
		os.Exit(1)
	}
	listed := make(map[string]bool, len(products))
	for _, p := range products {
		listed[p.Symbol] = true
	}
	for _, symbol := range cfg.Recorder.Symbols {
		if !listed[symbol] {
			logger.Error("symbol not listed on exchange", "symbol", symbol)
			os.Exit(1)
		}
	}
	logger.Info("symbols verified", "listed_products", len(products))

	// Create the stream manager
	manager := stream.New(stream.Config{
		URL:              cfg.API.StreamURL(),
		Credentials:      creds,
		MaxReconnects:    cfg.Stream.MaxReconnects,
		ReconnectMaxWait: cfg.Stream.ReconnectMaxWait,
		ReadTimeout:      cfg.Stream.ReadTimeout,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		WriteTimeout:     cfg.Stream.WriteTimeout,
		BufferSize:       cfg.Stream.BufferSize,
		DedupHandlers:    cfg.Stream.DedupHandlers,
	}, logger)

	// Create recorders
	recCfg := recorder.Config{
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval,
	}
	trades := recorder.NewTradeRecorder(recCfg, pool, logger)
	bars := recorder.NewBarRecorder(recCfg, pool, logger)

	// Components outlive startup, so each one starts on the signal-bound
	// context.
	if err := trades.Start(ctx); err != nil {
		logger.Error("failed to start trade recorder", "error", err)
		os.Exit(1)
	}
	if err := bars.Start(ctx); err != nil {
		logger.Error("failed to start bar recorder", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting", "url", cfg.API.StreamURL())
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	for _, symbol := range cfg.Recorder.Symbols {
		if err := manager.Subscribe("trades", symbol, trades.Handle); err != nil {
			logger.Error("subscribe failed", "symbol", symbol, "error", err)
			os.Exit(1)
		}
		if err := manager.Subscribe("bar", symbol, bars.Handle); err != nil {
			logger.Error("subscribe failed", "symbol", symbol, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("subscribed", "symbols", len(cfg.Recorder.Symbols))

	logger.Info("recorder running", "instance_id", cfg.Instance.ID)

	// Process-lifetime goroutines: the group runs until a shutdown signal
	// or a terminal stream failure.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-manager.Done():
			return manager.Err()
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				streamStats := manager.Stats()
				tradeStats := trades.Stats()
				barStats := bars.Stats()
				logger.Info("stats",
					"state", streamStats.State,
					"subscriptions", streamStats.Subscriptions,
					"trade_inserts", tradeStats.Inserts,
					"trade_conflicts", tradeStats.Conflicts,
					"bar_inserts", barStats.Inserts,
					"errors", tradeStats.Errors+barStats.Errors,
				)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("stream failed", "error", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	manager.Stop(shutdownCtx)
	trades.Stop(shutdownCtx)
	bars.Stop(shutdownCtx)

	logger.Info("recorder stopped")
}
