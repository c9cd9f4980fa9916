package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when MINERGATE_CONFIG is unset.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for minergate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Miners    MinersConfig    `yaml:"miners"`
	Fleet     FleetConfig     `yaml:"fleet"`
}

// GatewayConfig identifies this gateway instance.
type GatewayConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
//
// Write must cover a full fleet scan; the default leaves room for a /24
// of silent hosts at the default miner timeout.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
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

// DatabaseConfig contains SQLite settings for the light-command audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// InfluxDBConfig contains InfluxDB connection settings for scan statistics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MinersConfig selects and tunes the device backend.
type MinersConfig struct {
	// Backend is "cgminer" for real devices or "sim" for the simulated fleet.
	Backend string `yaml:"backend"`

	// Port is the CGMiner API port.
	Port int `yaml:"port"`

	// Timeout bounds one device command, in seconds.
	Timeout int `yaml:"timeout"`

	// SimHosts lists the simulated miners (target syntax accepted).
	SimHosts []string `yaml:"sim_hosts"`
}

// FleetConfig bounds fleet queries.
type FleetConfig struct {
	// MaxConcurrency caps in-flight hosts per scan. 0 means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxHosts caps how many hosts one target specification may expand to.
	MaxHosts int `yaml:"max_hosts"`

	// DefaultTargets is scanned when a request names no targets.
	DefaultTargets []string `yaml:"default_targets"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MINERGATE_SECTION_KEY
// For example: MINERGATE_API_PORT, MINERGATE_MINERS_BACKEND
//
// A missing file at DefaultPath is not an error: defaults and environment
// overrides apply. Any other missing path is.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// PathFromEnv returns MINERGATE_CONFIG or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("MINERGATE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ID:   "minergate-01",
			Name: "minergate",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
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
		Database: DatabaseConfig{
			Path:        "./data/minergate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "minergate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "minergate",
			Bucket:        "minergate",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Miners: MinersConfig{
			Backend: "cgminer",
			Port:    4028,
			Timeout: 5,
		},
		Fleet: FleetConfig{
			MaxHosts:       65536,
			DefaultTargets: []string{"192.168.1.1-255"},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MINERGATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a number", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	// API
	str("MINERGATE_API_HOST", &cfg.API.Host)
	num("MINERGATE_API_PORT", &cfg.API.Port)

	// Logging
	str("MINERGATE_LOGGING_LEVEL", &cfg.Logging.Level)
	str("MINERGATE_LOGGING_FORMAT", &cfg.Logging.Format)

	// Database
	flag("MINERGATE_DATABASE_ENABLED", &cfg.Database.Enabled)
	str("MINERGATE_DATABASE_PATH", &cfg.Database.Path)

	// MQTT
	flag("MINERGATE_MQTT_ENABLED", &cfg.MQTT.Enabled)
	str("MINERGATE_MQTT_HOST", &cfg.MQTT.Broker.Host)
	num("MINERGATE_MQTT_PORT", &cfg.MQTT.Broker.Port)
	str("MINERGATE_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	str("MINERGATE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// InfluxDB
	flag("MINERGATE_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	str("MINERGATE_INFLUXDB_URL", &cfg.InfluxDB.URL)
	str("MINERGATE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Miners
	str("MINERGATE_MINERS_BACKEND", &cfg.Miners.Backend)
	num("MINERGATE_MINERS_PORT", &cfg.Miners.Port)
	num("MINERGATE_MINERS_TIMEOUT", &cfg.Miners.Timeout)
	if v := os.Getenv("MINERGATE_MINERS_SIM_HOSTS"); v != "" {
		cfg.Miners.SimHosts = []string{v}
	}

	// Fleet
	num("MINERGATE_FLEET_MAX_CONCURRENCY", &cfg.Fleet.MaxConcurrency)
	num("MINERGATE_FLEET_MAX_HOSTS", &cfg.Fleet.MaxHosts)
	if v := os.Getenv("MINERGATE_FLEET_DEFAULT_TARGETS"); v != "" {
		cfg.Fleet.DefaultTargets = []string{v}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Every problem is collected so one run reports them all.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ID == "" {
		errs = append(errs, "gateway.id is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	switch c.Miners.Backend {
	case "cgminer":
		if c.Miners.Port < 1 || c.Miners.Port > 65535 {
			errs = append(errs, "miners.port must be between 1 and 65535")
		}
	case "sim":
		if len(c.Miners.SimHosts) == 0 {
			errs = append(errs, "miners.sim_hosts is required for the sim backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("miners.backend must be cgminer or sim, got %q", c.Miners.Backend))
	}
	if c.Miners.Timeout < 1 {
		errs = append(errs, "miners.timeout must be at least 1 second")
	}

	if c.Fleet.MaxConcurrency < 0 {
		errs = append(errs, "fleet.max_concurrency must not be negative")
	}
	if c.Fleet.MaxHosts < 1 {
		errs = append(errs, "fleet.max_hosts must be positive")
	}
	if len(c.Fleet.DefaultTargets) == 0 {
		errs = append(errs, "fleet.default_targets is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// GetMinerTimeout returns the per-command device timeout as a Duration.
func (c *Config) GetMinerTimeout() time.Duration {
	return time.Duration(c.Miners.Timeout) * time.Second
}
