// Gray Logic Device - on-device runtime orchestrator
//
// This is the main entry point for the device agent. It loads the device
// identity, connects to the cloud over MQTT, syncs properties, publishes
// notifications, serves remote procedure calls and drives the provisioning
// button from a fixed-tick main loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-device/internal/api"
	"github.com/nerrad567/gray-logic-device/internal/app"
	"github.com/nerrad567/gray-logic-device/internal/audit"
	"github.com/nerrad567/gray-logic-device/internal/cloud"
	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-device/internal/notification"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/publisher"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
	"github.com/nerrad567/gray-logic-device/internal/runtime"
	"github.com/nerrad567/gray-logic-device/migrations"
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

// run wires the device runtime and blocks in the main loop until ctx is
// cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or error describing the failed step
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Device",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	creds, err := credentials.NewProvider(cfg.Device, db)
	if err != nil {
		return fmt.Errorf("selecting credential source: %w", err)
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	link, err := cloud.New(cloud.OptionsFrom(cfg.Cloud), cloud.MQTTDialer(cfg.Cloud.MQTT, log.Component("mqtt")))
	if err != nil {
		return fmt.Errorf("creating cloud link: %w", err)
	}
	link.SetLogger(log.Component("cloud"))
	defer func() {
		log.Info("closing cloud link")
		if closeErr := link.Close(); closeErr != nil {
			log.Error("error closing cloud link", "error", closeErr)
		}
	}()

	trail := audit.NewRecorder(audit.NewSQLiteRepository(db), audit.DefaultQueueSize)
	trail.SetLogger(log.Component("audit"))
	link.OnInbound(func(r cloud.InboundRecord) {
		var details map[string]any
		if r.Value != "" {
			details = map[string]any{"value": r.Value}
		}
		if r.Error != "" {
			if details == nil {
				details = map[string]any{}
			}
			details["error"] = r.Error
		}
		trail.Record(audit.Entry{
			Action:  r.Kind.String(),
			Target:  r.Name,
			Source:  audit.SourceCloud,
			Owner:   r.Owner,
			Status:  r.Status,
			Details: details,
		})
	})

	props := property.NewRegistry()
	props.SetLogger(log.Component("properties"))
	notes := notification.NewRegistry()
	notes.SetLogger(log.Component("notifications"))
	rpcs := rpc.NewRegistry()

	// The scheduler owns the identity; sinks that need the device id read
	// it lazily because workers only start after credentials are loaded.
	var sched *runtime.Scheduler
	deviceID := func() string {
		if sched == nil || sched.Identity() == nil {
			return ""
		}
		return sched.Identity().DeviceIDHex()
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
	}

	sinks := property.MultiSink{link}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if influxClient != nil {
		sinks = append(sinks, property.SinkFunc(func(samples []property.Sample) error {
			return property.MirrorSink{Writer: influxClient, DeviceID: deviceID()}.EmitProperties(samples)
		}))
	}
	syncer := property.NewSyncer(props, sinks, cfg.GetPropertyIdleWake())
	syncer.SetLogger(log.Component("property-sync"))

	notifier := notification.NewPublisher(notes, link, cfg.GetNotificationInterval())
	notifier.SetLogger(log.Component("notification-publisher"))
	if hub != nil {
		notifier.OnPublished(hub.NotificationPublished)
	}

	prov := provisioning.NewService(provisioning.NewSQLiteEventStore(db), cfg.GetProvisioningWindow())
	prov.SetLogger(log.Component("provisioning"))
	if hub != nil {
		prov.OnEnter(hub.ProvisioningEntered)
	}
	if influxClient != nil {
		prov.OnEnter(func(ev provisioning.Event) {
			influxClient.WriteProvisioningEvent(deviceID(), ev.Source, ev.ExpiresAt.Sub(ev.EnteredAt), ev.EnteredAt)
		})
	}

	input, err := buttonInput(cfg.Button)
	if err != nil {
		return fmt.Errorf("opening provisioning button: %w", err)
	}
	trigger := provisioning.NewTrigger(input, prov, cfg.GetTick(), cfg.GetButtonThreshold())
	trigger.SetLogger(log.Component("button"))

	status := publisher.New(link, publisher.Config{
		Tick:    cfg.GetTick(),
		Period:  cfg.GetPublishPeriod(),
		Topic:   cfg.Runtime.PublishTopic,
		Message: cfg.Runtime.PublishMessage,
	})
	status.SetLogger(log.Component("status-publisher"))

	device := app.New()
	device.SetLogger(log.Component("app"))

	workers := []runtime.Worker{trail, syncer, notifier}
	if cfg.Sensor.Source == config.SensorSourceThermal {
		poller := app.NewSensorPoller(device, app.ThermalZone{Path: cfg.Sensor.Path}, cfg.GetSensorInterval())
		poller.SetLogger(log.Component("sensor"))
		workers = append(workers, poller)
	}

	sched, err = runtime.New(runtime.Deps{
		Storage: runtime.StorageFunc(func(ctx context.Context) error {
			return db.Migrate(ctx, migrations.Source())
		}),
		Credentials:   creds,
		Link:          link,
		Registrar:     device.Register,
		Properties:    props,
		Notifications: notes,
		RPC:           rpcs,
		Provisioning:  prov,
		Trigger:       trigger,
		Publisher:     status,
		Workers:       workers,
		Tick:          cfg.GetTick(),
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.SetLogger(log.Component("runtime"))
	defer sched.Shutdown()

	if err := sched.Startup(ctx); err != nil {
		return err
	}
	log.Info("device runtime started", "device_id", sched.Identity().DeviceIDHex())

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:        cfg.API,
			WS:            cfg.WebSocket,
			Logger:        log.Component("api"),
			Properties:    props,
			Notifications: notes,
			RPC:           rpcs,
			Provisioning:  prov,
			Link:          link,
			Runtime:       sched,
			DB:            db,
			Audit:         trail,
			Hub:           hub,
			Version:       version,
		}
		if influxClient != nil {
			deps.Telemetry = influxClient
		}
		srv, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("entering main loop", "tick", cfg.GetTick())
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("main loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYDEVICE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYDEVICE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buttonInput builds the provisioning button from the button section.
func buttonInput(cfg config.ButtonConfig) (provisioning.Input, error) {
	if cfg.Source != config.ButtonSourceSysfs {
		return provisioning.StaticInput{}, nil
	}
	input, err := provisioning.NewSysfsInput(cfg.SysfsRoot, cfg.GPIO, cfg.ActiveLow)
	if err != nil {
		return nil, err
	}
	return input, nil
}

// healthCheck verifies local infrastructure once the runtime is up. The
// cloud link is not checked; it connects in the background.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
