// minergate is an HTTP gateway in front of a fleet of cryptocurrency
// mining devices.
//
// It answers telemetry queries for single miners and whole address ranges,
// drives each miner's fault light, and publishes light and scan events to
// WebSocket clients, an MQTT broker and InfluxDB. Light commands are kept
// in a SQLite audit trail.
//
// Configuration is read from configs/config.yaml, or the file named by
// MINERGATE_CONFIG, with MINERGATE_* environment overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/minergate/migrations"

	"github.com/nerrad567/minergate/internal/api"
	"github.com/nerrad567/minergate/internal/audit"
	"github.com/nerrad567/minergate/internal/bridges/fleetmqtt"
	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/infrastructure/database"
	"github.com/nerrad567/minergate/internal/infrastructure/influxdb"
	"github.com/nerrad567/minergate/internal/infrastructure/logging"
	"github.com/nerrad567/minergate/internal/infrastructure/mqtt"
	"github.com/nerrad567/minergate/internal/miner/backend"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the gateway and blocks until ctx is cancelled. Deferred closes
// run in reverse order of construction.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting minergate", "version", version, "commit", commit, "build_date", date)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"backend", cfg.Miners.Backend,
		"level", cfg.Logging.Level,
	)

	factory, err := backend.New(cfg)
	if err != nil {
		return fmt.Errorf("creating miner backend: %w", err)
	}

	// Every event consumer registers here; the service is built first.
	events := &fleet.Dispatcher{}
	svc := fleet.NewService(factory, backend.ServiceConfig(cfg, events, log.Component("fleet")))

	var db *database.DB
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		repo := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(repo, log.Component("audit"))
		recCtx, stop := context.WithCancel(ctx)
		recorder.Start(recCtx)
		// Drain queued entries before the database closes.
		defer recorder.Wait()
		defer stop()
		events.Add(recorder)
		auditRepo = repo
	} else {
		log.Info("database disabled, light commands will not be audited")
	}

	var (
		mqttClient *mqtt.Client
		bridge     *fleetmqtt.Bridge
	)
	if cfg.MQTT.Enabled {
		mqttClient, bridge, err = startMQTT(ctx, cfg, svc, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		// Queued events are sent before the client closes.
		defer bridge.Stop()
		events.Add(bridge)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		events.Add(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Fleet:   svc,
		Version: version,
		Events:  events,
		Audit:   auditRepo,
		DB:      db,
	}
	// Typed nils must not reach the interface fields.
	if mqttClient != nil {
		deps.MQTT = mqttClient
		deps.MQTTBridge = bridge
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete", "observers", events.Len())

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startMQTT connects to the broker and starts the light-command bridge.
func startMQTT(ctx context.Context, cfg *config.Config, svc *fleet.Service, log *logging.Logger) (*mqtt.Client, *fleetmqtt.Bridge, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() { mqttLog.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { mqttLog.Warn("MQTT disconnected", "error", err) })

	bridge := fleetmqtt.New(client, svc, log.Component("fleetmqtt"))
	if err := bridge.Start(ctx); err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, bridge, nil
}

// healthCheck verifies every enabled backend. Nil backends are disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
