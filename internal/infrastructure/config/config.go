package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the coupon system.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Database  DatabaseConfig  `yaml:"database"`
	Pool      PoolConfig      `yaml:"pool"`
	Sweep     SweepConfig     `yaml:"sweep"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SystemConfig identifies this deployment.
type SystemConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`

	// LockFile guards against two processes serving the same database.
	// Empty means "<database.path>.lock".
	LockFile string `yaml:"lock_file"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// PoolConfig sizes the connection lease pool.
type PoolConfig struct {
	// Size is the fixed number of leasable connections.
	Size int `yaml:"size"`

	// AcquireTimeout bounds how long a repository call waits for a
	// connection (seconds). 0 waits until the request context ends.
	AcquireTimeout int `yaml:"acquire_timeout"`

	// DrainTimeout bounds how long shutdown waits for outstanding leases
	// (seconds). 0 waits indefinitely.
	DrainTimeout int `yaml:"drain_timeout"`
}

// SweepConfig controls the expired coupon sweep.
type SweepConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains settings for the live sweep event stream.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// RateLimitConfig throttles login attempts per client address.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// AdminConfig holds the built-in administrator credentials.
type AdminConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: COUPONSYS_SECTION_KEY
// For example: COUPONSYS_DATABASE_PATH, COUPONSYS_POOL_SIZE
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			ID:       "couponsys-001",
			Name:     "Coupon System",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/coupons.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Pool: PoolConfig{
			Size:           10,
			AcquireTimeout: 30,
			DrainTimeout:   60,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "couponsys-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 10,
				Burst:             5,
			},
			Admin: AdminConfig{
				Name: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: COUPONSYS_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("COUPONSYS_SYSTEM_TIMEZONE"); v != "" {
		cfg.System.Timezone = v
	}

	if v := os.Getenv("COUPONSYS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("COUPONSYS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COUPONSYS_POOL_SIZE: %w", err)
		}
		cfg.Pool.Size = n
	}

	if v := os.Getenv("COUPONSYS_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUPONSYS_SWEEP_INTERVAL: %w", err)
		}
		cfg.Sweep.Interval = d
	}

	if v := os.Getenv("COUPONSYS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("COUPONSYS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("COUPONSYS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("COUPONSYS_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("COUPONSYS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("COUPONSYS_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("COUPONSYS_ADMIN_PASSWORD"); v != "" {
		cfg.Security.Admin.Password = v
	}

	return nil
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.System.ID == "" {
		errs = append(errs, "system.id is required")
	}
	if _, err := time.LoadLocation(c.System.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("system.timezone %q is not a known zone", c.System.Timezone))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Pool.Size < 1 {
		errs = append(errs, "pool.size must be at least 1")
	}
	if c.Pool.AcquireTimeout < 0 {
		errs = append(errs, "pool.acquire_timeout must not be negative")
	}
	if c.Pool.DrainTimeout < 0 {
		errs = append(errs, "pool.drain_timeout must not be negative")
	}

	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		errs = append(errs, "sweep.interval must be positive when the sweep is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set COUPONSYS_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if c.Security.Admin.Name == "" || c.Security.Admin.Password == "" {
		errs = append(errs, "security.admin.name and security.admin.password are required (set COUPONSYS_ADMIN_PASSWORD)")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be at least 1 when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LockPath returns the process lock file path.
func (c *Config) LockPath() string {
	if c.System.LockFile != "" {
		return c.System.LockFile
	}
	return c.Database.Path + ".lock"
}

// Location returns the configured timezone, or UTC if it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.System.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns now converted to the configured timezone. Calendar-day
// decisions such as coupon expiry are taken in this zone.
func (c *Config) Clock(now func() time.Time) func() time.Time {
	loc := c.Location()
	return func() time.Time { return now().In(loc) }
}

// AcquireTimeout returns the pool acquire timeout as a Duration.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Pool.AcquireTimeout) * time.Second
}

// DrainTimeout returns the pool drain timeout as a Duration.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Pool.DrainTimeout) * time.Second
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
