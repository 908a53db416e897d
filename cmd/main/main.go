package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tick-stream/src/config"
	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
	"tick-stream/src/models"
	"tick-stream/src/server"
	"tick-stream/src/storage"
	"tick-stream/src/stream"
	"tick-stream/src/transport"
	"tick-stream/src/utils"
)

// -----------------------------------------------------------------------------

const statusRefreshInterval = 5 * time.Second

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config, config.Name)

	// 2. Event Journal (connection lifecycle metadata, not market data)
	var journal interfaces.IEventJournal

	switch config.Storage.DBType {
	case "postgres":
		journal, err = storage.NewPostgresJournal(config.MConfig, appLogger)
	case "none":
		// Run without a journal
	default:
		// Default to SQLite
		journal, err = storage.NewSQLiteJournal(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init journal: %v", err)
	}
	if journal != nil {
		if err := journal.Initialize(); err != nil {
			appLogger.Critical("Failed to migrate journal: %v", err)
		}
		if err := journal.CleanupOldEvents(); err != nil {
			appLogger.Warning("Journal cleanup failed: %v", err)
		}
	}

	// 3. Session Gate (stretches the offline retry horizon outside sessions)
	var gate interfaces.ISessionGate
	if config.Stream.UseSessionGate {
		gate = utils.NewSessionGate(logger.NewLogger(config, "SessionGate"))
	}

	// 4. Transport and Server
	var dialer interfaces.IConnectionClient = transport.NewWebSocketClient(logger.NewLogger(config, "WebSocket"))
	srv := server.NewStreamServer(config.MConfig, logger.NewLogger(config, "Server"))

	// 5. Stream Registry
	registry := stream.NewStreamRegistry(config.Stream, dialer, journal, gate, srv)

	// Create context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.Start(ctx); err != nil {
		appLogger.Critical("Failed to start registry: %v", err)
	}

	// 6. Subscribe every configured symbol. The registry shares one stream
	// per symbol; these process-level subscriptions keep them alive.
	unsubscribes := make([]func(), 0, len(config.Symbols))
	for _, symbol := range config.Symbols {
		updates, unsubscribe, err := registry.Subscribe(symbol)
		if err != nil {
			appLogger.Critical("Failed to subscribe %s: %v", symbol, err)
		}
		unsubscribes = append(unsubscribes, unsubscribe)

		// Drain; the registry already fans out to the server.
		go func(ch <-chan models.MTickUpdate) {
			for range ch {
			}
		}(updates)
	}

	appLogger.Info("Streaming %d symbols", len(config.Symbols))

	// 7. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 8. Main Loop
	statusTicker := time.NewTicker(statusRefreshInterval)
	defer statusTicker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-statusTicker.C:
			srv.UpdateStatuses(registry.Statuses())

		case <-quit:
			appLogger.Info("Shutting down...")
			for _, unsubscribe := range unsubscribes {
				unsubscribe()
			}
			if err := registry.Stop(); err != nil {
				appLogger.Warning("Registry stop: %v", err)
			}
			if journal != nil {
				if err := journal.Close(); err != nil {
					appLogger.Warning("Journal close: %v", err)
				}
			}
			return
		}
	}
}
