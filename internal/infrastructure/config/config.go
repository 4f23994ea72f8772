package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for rfcoord.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	Schema      SchemaConfig      `yaml:"schema"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	History     HistoryConfig     `yaml:"history"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GatewayConfig contains RF gateway client settings. The gateway
// interface is a RAMSES-ESP style firmware bridged over MQTT.
type GatewayConfig struct {
	// TopicRoot is the MQTT topic root the gateway firmware publishes
	// under, e.g. "RAMSES/GATEWAY/18:000730". Frames arrive on
	// <root>/rx and are transmitted via <root>/tx. A missing or
	// wildcarded root is a hard setup failure.
	TopicRoot string `yaml:"topic_root"`

	// OwnID overrides the gateway's own device identifier. Normally the
	// gateway learns its id from the topic root; set this only when the
	// root does not end in a device id.
	OwnID string `yaml:"own_id,omitempty"`

	// DisableSending puts the gateway in listen-only mode.
	DisableSending bool `yaml:"disable_sending"`
}

// SchemaConfig contains the user-declared device schema and related lists.
type SchemaConfig struct {
	// Declared is the user-declared device/zone schema, merged with the
	// cached schema at setup. Keys are controller device ids plus the
	// reserved block_list / known_list entries.
	Declared map[string]any `yaml:"declared"`

	// KnownList enumerates device ids the installation knows about.
	KnownList []string `yaml:"known_list"`

	// EnforceKnownList restricts packet-cache replay to packets that
	// reference at least one known device.
	EnforceKnownList bool `yaml:"enforce_known_list"`

	// Remotes maps a fan device id to the remote/display device bound to
	// it. The bound remote is the default sender identity for parameter
	// commands to that fan.
	Remotes map[string]string `yaml:"remotes"`
}

// CoordinatorConfig contains coordinator timing settings.
type CoordinatorConfig struct {
	// DiscoveryIntervalSeconds is how often the discovery pass runs.
	// Default: 60.
	DiscoveryIntervalSeconds int `yaml:"discovery_interval_seconds"`

	// SaveIntervalSeconds is how often cached state is flushed to storage.
	// Default: 300.
	SaveIntervalSeconds int `yaml:"save_interval_seconds"`

	// RequestTimeoutSeconds is how long a parameter request stays pending
	// before it times out. Default: 30.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// ParamDelayMillis is the inter-request delay during bulk parameter
	// updates, keeping the RF medium from saturating. Default: 150.
	ParamDelayMillis int `yaml:"param_delay_millis"`

	// PacketMaxAgeHours is the replay window for cached packets.
	// Default: 24.
	PacketMaxAgeHours int `yaml:"packet_max_age_hours"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// HistoryConfig contains InfluxDB parameter-history settings.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
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
// Environment variables follow the pattern: RFCOORD_SECTION_KEY
// For example: RFCOORD_DATABASE_PATH, RFCOORD_GATEWAY_TOPIC_ROOT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			TopicRoot: "RAMSES/GATEWAY",
		},
		Coordinator: CoordinatorConfig{
			DiscoveryIntervalSeconds: 60,
			SaveIntervalSeconds:      300,
			RequestTimeoutSeconds:    30,
			ParamDelayMillis:         150,
			PacketMaxAgeHours:        24,
		},
		Database: DatabaseConfig{
			Path:        "./data/rfcoord.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rfcoord",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8092,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RFCOORD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RFCOORD_GATEWAY_TOPIC_ROOT"); v != "" {
		cfg.Gateway.TopicRoot = v
	}
	if v := os.Getenv("RFCOORD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RFCOORD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RFCOORD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RFCOORD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("RFCOORD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RFCOORD_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.TopicRoot == "" {
		errs = append(errs, "gateway.topic_root is required")
	}
	if strings.ContainsAny(c.Gateway.TopicRoot, "#+") {
		errs = append(errs, "gateway.topic_root must not contain MQTT wildcards")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Coordinator.RequestTimeoutSeconds < 1 {
		errs = append(errs, "coordinator.request_timeout_seconds must be positive")
	}
	if c.Coordinator.ParamDelayMillis < 0 {
		errs = append(errs, "coordinator.param_delay_millis must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetDiscoveryInterval returns the discovery interval as a Duration.
func (c *Config) GetDiscoveryInterval() time.Duration {
	return time.Duration(c.Coordinator.DiscoveryIntervalSeconds) * time.Second
}

// GetSaveInterval returns the state-save interval as a Duration.
func (c *Config) GetSaveInterval() time.Duration {
	return time.Duration(c.Coordinator.SaveIntervalSeconds) * time.Second
}

// GetRequestTimeout returns the parameter request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Coordinator.RequestTimeoutSeconds) * time.Second
}

// GetParamDelay returns the bulk-update inter-request delay as a Duration.
func (c *Config) GetParamDelay() time.Duration {
	return time.Duration(c.Coordinator.ParamDelayMillis) * time.Millisecond
}

// GetPacketMaxAge returns the packet replay window as a Duration.
func (c *Config) GetPacketMaxAge() time.Duration {
	return time.Duration(c.Coordinator.PacketMaxAgeHours) * time.Hour
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
