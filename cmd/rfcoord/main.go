// rfcoord - RF gateway coordinator
//
// rfcoord bridges a RAMSES-style RF gateway to an entity registry and
// an MQTT signal bus: it reconciles the declared device schema with
// cached gateway state, replays the packet cache on startup, discovers
// systems, zones and devices into the registry, and exposes fan
// parameter services over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/quietmesh/rfcoord/migrations"

	"github.com/quietmesh/rfcoord/internal/api"
	"github.com/quietmesh/rfcoord/internal/coordinator"
	"github.com/quietmesh/rfcoord/internal/history"
	"github.com/quietmesh/rfcoord/internal/infrastructure/config"
	"github.com/quietmesh/rfcoord/internal/infrastructure/database"
	"github.com/quietmesh/rfcoord/internal/infrastructure/logging"
	"github.com/quietmesh/rfcoord/internal/infrastructure/mqtt"
	"github.com/quietmesh/rfcoord/internal/ramses/mqttgw"
	"github.com/quietmesh/rfcoord/internal/registry"
	"github.com/quietmesh/rfcoord/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so errors
// map onto exit codes in one place.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting rfcoord",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Entity registry
	reg := registry.New(registry.NewSQLiteRepository(db.DB))
	reg.SetLogger(log)
	if refreshErr := reg.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading entity registry: %w", refreshErr)
	}

	// Coordinator state store
	store := storage.New(db)

	// MQTT broker connection: signal bus and gateway transport share it
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	bus := coordinator.NewSignalBus(mqttClient, log)

	// Parameter history (optional)
	var histWriter coordinator.HistoryWriter
	if cfg.History.Enabled {
		histClient, histErr := history.Connect(cfg.History)
		if histErr != nil {
			return fmt.Errorf("connecting to history store: %w", histErr)
		}
		defer func() {
			log.Info("closing history store")
			if closeErr := histClient.Close(); closeErr != nil {
				log.Error("error closing history store", "error", closeErr)
			}
		}()
		histClient.SetOnError(func(err error) {
			log.Error("history write error", "error", err)
		})
		histWriter = histClient
		log.Info("history store connected", "url", cfg.History.URL, "bucket", cfg.History.Bucket)
	} else {
		log.Info("history store disabled")
	}

	// RF gateway over the shared broker
	gw := mqttgw.New(cfg.Gateway, mqttClient, log.With("component", "gateway"))

	// Coordinator
	coord := coordinator.New(cfg, gw, store, reg, bus, histWriter, log.With("component", "coordinator"))
	if setupErr := coord.Setup(ctx); setupErr != nil {
		return fmt.Errorf("coordinator setup: %w", setupErr)
	}
	if startErr := coord.Start(ctx); startErr != nil {
		return fmt.Errorf("coordinator start: %w", startErr)
	}
	defer func() {
		log.Info("unloading coordinator")
		if unloadErr := coord.Unload(context.Background()); unloadErr != nil {
			log.Error("error unloading coordinator", "error", unloadErr)
		}
	}()
	log.Info("coordinator running",
		"gateway", string(gw.OwnID()),
		"topic_root", cfg.Gateway.TopicRoot,
	)

	// HTTP service surface
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log.With("component", "api"),
		Service:  coord,
		Registry: reg,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RFCOORD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RFCOORD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
