// Coupon System core.
//
// This is the main entry point for the coupon system. It boots the
// connection pool and the expired coupon sweep, serves the REST API and
// shuts everything down in reverse order on SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/nerrad567/coupon-core/migrations"

	"github.com/nerrad567/coupon-core/internal/api"
	"github.com/nerrad567/coupon-core/internal/audit"
	"github.com/nerrad567/coupon-core/internal/company"
	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/customer"
	"github.com/nerrad567/coupon-core/internal/facade"
	"github.com/nerrad567/coupon-core/internal/infrastructure/config"
	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
	"github.com/nerrad567/coupon-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/coupon-core/internal/infrastructure/logging"
	"github.com/nerrad567/coupon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/coupon-core/internal/sweep"
	"github.com/nerrad567/coupon-core/internal/system"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// poolSampleInterval is how often pool occupancy is written to InfluxDB.
const poolSampleInterval = 15 * time.Second

// shutdownTimeout bounds the whole shutdown sequence. The pool drain has its
// own, shorter budget from config.
const shutdownTimeout = 2 * time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting coupon system",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		LeaseConns:  cfg.Pool.Size,
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

	mqttClient := connectMQTT(cfg, log)
	defer func() {
		if mqttClient != nil {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}
	}()

	influxClient := connectInfluxDB(cfg, log)
	defer func() {
		if influxClient != nil {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}
	}()

	clock := cfg.Clock(time.Now)
	log.Info("calendar timezone", "timezone", cfg.Location().String())

	// The hub must exist before Boot so the first sweep tick reaches it.
	hub := api.NewHub(cfg.WebSocket, log)

	coordinator := system.New(system.Config{
		LockPath:     cfg.LockPath(),
		SweepEnabled: cfg.Sweep.Enabled,
		Sweep: sweep.Config{
			Interval: cfg.Sweep.Interval,
			Linkages: system.CouponLinkages(),
			Now:      clock,
		},
		DrainTimeout: cfg.DrainTimeout(),
	}, database.NewPoolProvider(db, cfg.Pool.Size, cfg.AcquireTimeout()), system.NewCouponExpiry, hub)
	coordinator.SetLogger(log)
	coordinator.AddPoolReporter(func(pool *database.Pool) sweep.Reporter {
		return audit.NewSweepReporter(audit.NewSQLiteRepository(pool))
	})
	if mqttClient != nil {
		coordinator.AddReporter(mqtt.NewSweepReporter(mqttClient))
	}
	if influxClient != nil {
		coordinator.AddReporter(influxdb.NewSweepReporter(influxClient))
	}

	if err := coordinator.Boot(ctx); err != nil {
		return fmt.Errorf("booting coordinator: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("stopping sweep and draining connection pool")
		if shutdownErr := coordinator.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("error during coordinator shutdown", "error", shutdownErr)
		}
	}()

	pool, err := coordinator.Pool()
	if err != nil {
		return fmt.Errorf("getting connection pool: %w", err)
	}
	log.Info("coordinator booted", "pool_size", pool.Size(), "sweep_enabled", cfg.Sweep.Enabled)

	auditRepo := audit.NewSQLiteRepository(pool)
	facades := facade.New(facade.Deps{
		Coupons:   coupon.NewSQLiteRepository(pool),
		Companies: company.NewSQLiteRepository(pool),
		Customers: customer.NewSQLiteRepository(pool),
		Audit:     auditRepo,
		Now:       clock,
		Admin: facade.AdminCredentials{
			Name:     cfg.Security.Admin.Name,
			Password: cfg.Security.Admin.Password,
		},
	})
	facades.SetLogger(log)

	if mqttClient != nil {
		if sw := coordinator.Sweep(); sw != nil {
			cmdTopic := mqtt.Topics{}.SweepCommand()
			if subErr := mqttClient.Subscribe(cmdTopic, byte(cfg.MQTT.QoS), mqtt.SweepCommandHandler(ctx, sw.RunOnce, log)); subErr != nil {
				log.Warn("sweep command subscription failed", "topic", cmdTopic, "error", subErr)
			}
		}
	}

	if influxClient != nil {
		go influxClient.SamplePool(ctx, cfg.System.ID, poolSampleInterval, func() connpool.Stats { return pool.Stats() })
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Facades:  facades,
		Runtime:  coordinator,
		DB:       db,
		Audit:    auditRepo,
		Hub:      hub,
		Version:  version,
	})
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

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Coordinator (sweep cancel, join, pool drain)
	// 3. InfluxDB
	// 4. MQTT
	// 5. Database
	return nil
}

// getConfigPath returns the configuration file path.
// Uses COUPONSYS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("COUPONSYS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker when enabled. A failure is logged and
// the system runs without MQTT.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil
	}
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without sweep events", "error", err)
		return nil
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

// connectInfluxDB connects to InfluxDB when enabled. A failure is logged and
// the system runs without metrics.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without metrics", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}
