package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential sources accepted by device.credential_source.
const (
	CredentialSourceStorage = "storage"
	CredentialSourceStatic  = "static"
)

// Payload encodings accepted by cloud.encoding.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Button input sources accepted by button.source.
const (
	ButtonSourceNone  = "none"
	ButtonSourceSysfs = "sysfs"
)

// Sensor sources accepted by sensor.source.
const (
	SensorSourceNone    = "none"
	SensorSourceThermal = "thermal"
)

// Config is the root configuration structure for the device runtime.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device        DeviceConfig        `yaml:"device"`
	Database      DatabaseConfig      `yaml:"database"`
	Cloud         CloudConfig         `yaml:"cloud"`
	Runtime       RuntimeConfig       `yaml:"runtime"`
	Button        ButtonConfig        `yaml:"button"`
	Sensor        SensorConfig        `yaml:"sensor"`
	Properties    PropertiesConfig    `yaml:"properties"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Provisioning  ProvisioningConfig  `yaml:"provisioning"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DeviceConfig selects where the device identity comes from.
type DeviceConfig struct {
	// CredentialSource is "storage" (SQLite credential store) or "static"
	// (compiled-in constants, optionally overridden by the static block).
	CredentialSource string `yaml:"credential_source"`

	// Static holds hex-encoded credentials used when CredentialSource is "static".
	// Empty fields fall back to the values compiled into the binary.
	Static StaticCredentialsConfig `yaml:"static"`
}

// StaticCredentialsConfig contains hex-encoded device credentials.
type StaticCredentialsConfig struct {
	DeviceID   string `yaml:"device_id"`
	PrivateKey string `yaml:"private_key"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CloudConfig contains settings for the cloud link.
type CloudConfig struct {
	MQTT MQTTConfig `yaml:"mqtt"`

	// TopicPrefix is the root of the device topic tree: {prefix}/{device_id}/...
	TopicPrefix string `yaml:"topic_prefix"`

	// Encoding selects the payload codec: "json" or "cbor".
	Encoding string `yaml:"encoding"`

	// QueueSize bounds the outbound message queue.
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID is normally empty; the cloud link derives it from the device id.
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// RuntimeConfig contains cooperative loop timing.
type RuntimeConfig struct {
	// TickMS is the main loop period in milliseconds.
	TickMS int `yaml:"tick_ms"`

	// ButtonThresholdMS is how long the button must be held to enter provisioning.
	ButtonThresholdMS int `yaml:"button_threshold_ms"`

	// PublishPeriodMS is the period of the fixed status publish.
	PublishPeriodMS int `yaml:"publish_period_ms"`

	// PublishTopic and PublishMessage are the fixed status publish pair.
	PublishTopic   string `yaml:"publish_topic"`
	PublishMessage string `yaml:"publish_message"`
}

// ButtonConfig describes the provisioning button input.
type ButtonConfig struct {
	// Source is "sysfs" (Linux GPIO value file) or "none".
	Source string `yaml:"source"`

	// GPIO is the sysfs GPIO line number.
	GPIO int `yaml:"gpio"`

	// ActiveLow inverts the raw level (pressed = low), as on boot buttons with pull-ups.
	ActiveLow bool `yaml:"active_low"`

	// SysfsRoot overrides /sys/class/gpio (used by tests and containers).
	SysfsRoot string `yaml:"sysfs_root"`
}

// SensorConfig describes the environment sensor feeding the temperature property.
type SensorConfig struct {
	// Source is "thermal" (kernel thermal zone) or "none".
	Source string `yaml:"source"`

	// Path overrides the thermal zone file.
	Path string `yaml:"path"`

	IntervalMS int `yaml:"interval_ms"`
}

// PropertiesConfig contains property sync worker settings.
type PropertiesConfig struct {
	// IdleWakeMS is the sync worker period while no property is registered.
	IdleWakeMS int `yaml:"idle_wake_ms"`
}

// NotificationsConfig contains notification publish worker settings.
type NotificationsConfig struct {
	PublishIntervalMS int `yaml:"publish_interval_ms"`
}

// ProvisioningConfig contains secondary radio provisioning settings.
type ProvisioningConfig struct {
	// WindowSeconds is how long provisioning mode stays open once entered.
	WindowSeconds int `yaml:"window_seconds"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains local diagnostics HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	Panel    PanelConfig      `yaml:"panel"`
}

// PanelConfig controls the embedded maintenance page.
type PanelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // serve from disk instead of the embedded copy
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDEVICE_SECTION_KEY
// For example: GRAYDEVICE_DATABASE_PATH, GRAYDEVICE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the device defaults (10 ms tick, 10 s button
// hold, 20 s status publish).
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			CredentialSource: CredentialSourceStorage,
		},
		Database: DatabaseConfig{
			Path:        "./data/device.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cloud: CloudConfig{
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host: "localhost",
					Port: 1883,
				},
				QoS: 1,
				Reconnect: MQTTReconnectConfig{
					InitialDelay: 1,
					MaxDelay:     60,
				},
			},
			TopicPrefix: "devices",
			Encoding:    EncodingJSON,
			QueueSize:   64,
		},
		Runtime: RuntimeConfig{
			TickMS:            10,
			ButtonThresholdMS: 10000,
			PublishPeriodMS:   20000,
			PublishTopic:      "status",
			PublishMessage:    "online",
		},
		Button: ButtonConfig{
			Source:    ButtonSourceNone,
			ActiveLow: true,
		},
		Sensor: SensorConfig{
			Source:     SensorSourceNone,
			IntervalMS: 5000,
		},
		Properties: PropertiesConfig{
			IdleWakeMS: 100,
		},
		Notifications: NotificationsConfig{
			PublishIntervalMS: 1000,
		},
		Provisioning: ProvisioningConfig{
			WindowSeconds: 300,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8081,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			Panel: PanelConfig{Enabled: true},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYDEVICE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("GRAYDEVICE_CREDENTIAL_SOURCE"); v != "" {
		cfg.Device.CredentialSource = v
	}
	if v := os.Getenv("GRAYDEVICE_DEVICE_ID"); v != "" {
		cfg.Device.Static.DeviceID = v
	}
	if v := os.Getenv("GRAYDEVICE_PRIVATE_KEY"); v != "" {
		cfg.Device.Static.PrivateKey = v
	}

	// Database
	if v := os.Getenv("GRAYDEVICE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYDEVICE_MQTT_HOST"); v != "" {
		cfg.Cloud.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYDEVICE_MQTT_USERNAME"); v != "" {
		cfg.Cloud.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYDEVICE_MQTT_PASSWORD"); v != "" {
		cfg.Cloud.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDEVICE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Device.CredentialSource {
	case CredentialSourceStorage, CredentialSourceStatic:
	default:
		errs = append(errs, `device.credential_source must be "storage" or "static"`)
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Cloud.MQTT.QoS < 0 || c.Cloud.MQTT.QoS > 2 {
		errs = append(errs, "cloud.mqtt.qos must be 0, 1, or 2")
	}
	if c.Cloud.MQTT.Broker.Port < 1 || c.Cloud.MQTT.Broker.Port > 65535 {
		errs = append(errs, "cloud.mqtt.broker.port must be between 1 and 65535")
	}
	if c.Cloud.TopicPrefix == "" || strings.ContainsAny(c.Cloud.TopicPrefix, "+#") {
		errs = append(errs, "cloud.topic_prefix must be non-empty and contain no wildcards")
	}
	switch c.Cloud.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		errs = append(errs, `cloud.encoding must be "json" or "cbor"`)
	}
	if c.Cloud.QueueSize < 1 {
		errs = append(errs, "cloud.queue_size must be positive")
	}

	if c.Runtime.TickMS < 1 {
		errs = append(errs, "runtime.tick_ms must be positive")
	}
	if c.Runtime.ButtonThresholdMS < c.Runtime.TickMS {
		errs = append(errs, "runtime.button_threshold_ms must be at least one tick")
	}
	if c.Runtime.PublishPeriodMS < c.Runtime.TickMS {
		errs = append(errs, "runtime.publish_period_ms must be at least one tick")
	}
	if c.Runtime.PublishTopic == "" {
		errs = append(errs, "runtime.publish_topic is required")
	}

	switch c.Button.Source {
	case ButtonSourceNone, ButtonSourceSysfs:
	default:
		errs = append(errs, `button.source must be "none" or "sysfs"`)
	}
	if c.Button.GPIO < 0 {
		errs = append(errs, "button.gpio must not be negative")
	}

	switch c.Sensor.Source {
	case SensorSourceNone, SensorSourceThermal:
	default:
		errs = append(errs, `sensor.source must be "none" or "thermal"`)
	}
	if c.Sensor.Source == SensorSourceThermal && c.Sensor.IntervalMS < 1 {
		errs = append(errs, "sensor.interval_ms must be positive")
	}

	if c.Properties.IdleWakeMS < 1 {
		errs = append(errs, "properties.idle_wake_ms must be positive")
	}
	if c.Notifications.PublishIntervalMS < 1 {
		errs = append(errs, "notifications.publish_interval_ms must be positive")
	}
	if c.Provisioning.WindowSeconds < 1 {
		errs = append(errs, "provisioning.window_seconds must be positive")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTick returns the main loop period.
func (c *Config) GetTick() time.Duration {
	return time.Duration(c.Runtime.TickMS) * time.Millisecond
}

// GetButtonThreshold returns the hold time that enters provisioning.
func (c *Config) GetButtonThreshold() time.Duration {
	return time.Duration(c.Runtime.ButtonThresholdMS) * time.Millisecond
}

// GetPublishPeriod returns the fixed status publish period.
func (c *Config) GetPublishPeriod() time.Duration {
	return time.Duration(c.Runtime.PublishPeriodMS) * time.Millisecond
}

// GetSensorInterval returns the environment sensor sampling period.
func (c *Config) GetSensorInterval() time.Duration {
	return time.Duration(c.Sensor.IntervalMS) * time.Millisecond
}

// GetPropertyIdleWake returns the sync worker period used while no property is registered.
func (c *Config) GetPropertyIdleWake() time.Duration {
	return time.Duration(c.Properties.IdleWakeMS) * time.Millisecond
}

// GetNotificationInterval returns the notification publish period.
func (c *Config) GetNotificationInterval() time.Duration {
	return time.Duration(c.Notifications.PublishIntervalMS) * time.Millisecond
}

// GetProvisioningWindow returns how long provisioning mode stays open.
func (c *Config) GetProvisioningWindow() time.Duration {
	return time.Duration(c.Provisioning.WindowSeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
