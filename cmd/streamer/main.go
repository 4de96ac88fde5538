// streamer connects to the AscendEX stream and prints parsed frames to
// the console. Usage: go run ./cmd/streamer --config configs/recorder.local.yaml
//
// Credentials are optional; without them only public channels work.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avelez/ascendex-stream/internal/auth"
	"github.com/avelez/ascendex-stream/internal/config"
	"github.com/avelez/ascendex-stream/internal/stream"
)

func main() {
	configPath := flag.String("config", "configs/recorder.example.yaml", "path to config file")
	channels := flag.String("channels", "trades", "comma-separated channels to subscribe (trades, depth, bar)")
	snapshot := flag.Bool("snapshot", false, "request a depth snapshot per symbol on startup")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var creds *auth.Credentials
	if cfg.API.APIKey != "" {
		creds = &auth.Credentials{Key: cfg.API.APIKey, Secret: cfg.API.APISecret}
		logger.Info("using API credentials", "key_id", cfg.API.APIKey)
	} else {
		logger.Info("no credentials configured, public channels only")
	}

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

	logger.Info("connecting", "url", cfg.API.StreamURL())
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	for _, channel := range strings.Split(*channels, ",") {
		channel = strings.TrimSpace(channel)
		for _, symbol := range cfg.Recorder.Symbols {
			if err := manager.Subscribe(channel, symbol, printFrame(*verbose)); err != nil {
				logger.Error("subscribe failed", "channel", channel, "symbol", symbol, "error", err)
				os.Exit(1)
			}
			logger.Info("subscribed", "channel", channel, "symbol", symbol)
		}
	}

	if *snapshot {
		for _, symbol := range cfg.Recorder.Symbols {
			reqCtx, reqCancel := context.WithTimeout(ctx, 10*time.Second)
			payload, err := manager.DepthSnapshot(reqCtx, symbol)
			reqCancel()
			if err != nil {
				logger.Error("depth snapshot failed", "symbol", symbol, "error", err)
				continue
			}
			fmt.Printf("[SNAPSHOT] symbol=%s %s\n", symbol, payload)
		}
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := manager.Stats()
				logger.Info("stats",
					"state", stats.State,
					"pending_requests", stats.PendingRequests,
					"subscriptions", stats.Subscriptions,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown or terminal stream failure
	select {
	case <-ctx.Done():
	case <-manager.Done():
		logger.Error("stream failed", "error", manager.Err())
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	manager.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

// printFrame returns a handler that prints each delivered payload.
func printFrame(verbose bool) stream.Handler {
	return func(channel, id string, data json.RawMessage) error {
		if verbose {
			pretty, _ := json.MarshalIndent(json.RawMessage(data), "", "  ")
			fmt.Printf("[%s] %s\n%s\n", strings.ToUpper(channel), id, pretty)
		} else {
			fmt.Printf("[%s] %s %s\n", strings.ToUpper(channel), id, data)
		}
		return nil
	}
}
