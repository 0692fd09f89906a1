// Package models - Service configuration and operational settings.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, gateway, store, etc.)
// - Environment-friendly defaults that work out of the box
// - Comprehensive validation to catch misconfigurations early
// - Security-first approach with safe defaults
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store type constants
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP listener settings
	Gateway       GatewayConfig       `yaml:"gateway" json:"gateway"`             // Admission gateway behavior
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`           // Protected hosting application
	Store         StoreConfig         `yaml:"store" json:"store"`                 // Shared state backing
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing configuration
}

type ServerConfig struct {
	Port         int            `yaml:"port" json:"port"`
	Host         string         `yaml:"host" json:"host"`
	ReadTimeout  time.Duration  `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration  `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration  `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool           `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string         `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string         `yaml:"tls_key_file" json:"tls_key_file"`
	Overload     OverloadConfig `yaml:"overload" json:"overload"`
}

// OverloadConfig bounds the total request rate the process accepts,
// independent of any per-client accounting.
type OverloadConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int  `yaml:"burst" json:"burst"`
}

// GatewayConfig carries the full admission-gateway configuration surface.
// Clients behind an anonymity network cannot be told apart by address, so
// the gateway keys everything on a header-derived fingerprint instead.
type GatewayConfig struct {
	Secret             string        `yaml:"secret" json:"secret"`                           // static signing secret, required
	SiteName           string        `yaml:"site_name" json:"site_name"`                     // shown on queue/blocked pages
	Label              string        `yaml:"label" json:"label"`                             // gateway name in page footer
	QueueImageURL      string        `yaml:"queue_image_url" json:"queue_image_url"`         // optional logo on the queue page
	QueueCookieName    string        `yaml:"queue_cookie_name" json:"queue_cookie_name"`     // default zant_q
	AccessCookieName   string        `yaml:"access_cookie_name" json:"access_cookie_name"`   // default zant_a
	WaitSeconds        int           `yaml:"wait_seconds" json:"wait_seconds"`               // queue wait per visit
	MaxLifetime        time.Duration `yaml:"max_lifetime" json:"max_lifetime"`               // cookie expiry horizon
	MaxFails           int           `yaml:"max_fails" json:"max_fails"`                     // premature retries before ban
	BanSeconds         int           `yaml:"ban_seconds" json:"ban_seconds"`                 // base ban duration
	Fingerprinting     bool          `yaml:"fingerprinting" json:"fingerprinting"`           // header fingerprint enforcement
	RotationInterval   time.Duration `yaml:"rotation_interval" json:"rotation_interval"`     // signing key rotation
	SuspicionThreshold int           `yaml:"suspicion_threshold" json:"suspicion_threshold"` // flagged requests before ban
	RateWindow         time.Duration `yaml:"rate_window" json:"rate_window"`                 // sliding-window width
	RateMaxRequests    int           `yaml:"rate_max_requests" json:"rate_max_requests"`     // max requests per window
	ExcludedPaths      []string      `yaml:"excluded_paths" json:"excluded_paths"`           // path prefixes that bypass the gateway
	ThemeStylesheet    string        `yaml:"theme_stylesheet" json:"theme_stylesheet"`       // optional CSS file for page colors
	SecureCookies      bool          `yaml:"secure_cookies" json:"secure_cookies"`           // set Secure on cookies (off for plain transport)
	PowDifficulty      int           `yaml:"pow_difficulty" json:"pow_difficulty"`           // accepted but not consulted by any decision path
}

type UpstreamConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type StoreConfig struct {
	Type   string       `yaml:"type" json:"type"`
	Memory MemoryConfig `yaml:"memory" json:"memory"`
	Redis  RedisConfig  `yaml:"redis" json:"redis"`
}

type MemoryConfig struct {
	MaxEntries    int           `yaml:"max_entries" json:"max_entries"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Exporter string `yaml:"exporter" json:"exporter"` // "stdout" or "otlp"
	Endpoint string `yaml:"endpoint" json:"endpoint"` // OTLP gRPC endpoint
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - 8-second wait: Long enough to slow scripted floods, short enough for humans
// - Memory store: No external dependencies for a single-instance deployment
// - Secure cookies off: Hidden-service deployments terminate on plain transport
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "127.0.0.1",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
			Overload: OverloadConfig{
				Enabled:           true,
				RequestsPerSecond: 200,
				Burst:             400,
			},
		},
		Gateway: GatewayConfig{
			SiteName:           "zant",
			Label:              "zantgate",
			QueueCookieName:    "zant_q",
			AccessCookieName:   "zant_a",
			WaitSeconds:        8,
			MaxLifetime:        24 * time.Hour,
			MaxFails:           3,
			BanSeconds:         600,
			Fingerprinting:     true,
			RotationInterval:   time.Hour,
			SuspicionThreshold: 5,
			RateWindow:         60 * time.Second,
			RateMaxRequests:    20,
			ExcludedPaths:      []string{"/zantgate/assets/", "/health"},
			SecureCookies:      false,
		},
		Upstream: UpstreamConfig{
			URL:     "http://127.0.0.1:3000",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Type: StoreTypeMemory,
			Memory: MemoryConfig{
				MaxEntries:    100000,
				SweepInterval: 5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "zantgate",
			Tracing: TracingConfig{
				Enabled:  false,
				Exporter: "stdout",
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("invalid gateway config: %w", err)
	}

	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("invalid upstream config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	if sc.Overload.Enabled {
		if sc.Overload.RequestsPerSecond <= 0 {
			return errors.New("overload requests_per_second must be positive")
		}
		if sc.Overload.Burst <= 0 {
			return errors.New("overload burst must be positive")
		}
	}

	return nil
}

func (gc *GatewayConfig) Validate() error {
	if gc.Secret == "" {
		return errors.New("gateway secret is required")
	}

	if len(gc.Secret) < 16 {
		return errors.New("gateway secret must be at least 16 characters")
	}

	if gc.QueueCookieName == "" || gc.AccessCookieName == "" {
		return errors.New("cookie names cannot be empty")
	}

	if gc.QueueCookieName == gc.AccessCookieName {
		return errors.New("queue and access cookie names must differ")
	}

	if gc.WaitSeconds <= 0 {
		return errors.New("wait_seconds must be positive")
	}

	if gc.MaxLifetime <= 0 {
		return errors.New("max_lifetime must be positive")
	}

	if gc.MaxFails <= 0 {
		return errors.New("max_fails must be positive")
	}

	if gc.BanSeconds <= 0 {
		return errors.New("ban_seconds must be positive")
	}

	// Key derivation floors time to whole seconds of the interval.
	if gc.RotationInterval < time.Second {
		return errors.New("rotation_interval must be at least 1s")
	}

	if gc.SuspicionThreshold <= 0 {
		return errors.New("suspicion_threshold must be positive")
	}

	if gc.RateWindow <= 0 {
		return errors.New("rate_window must be positive")
	}

	if gc.RateMaxRequests <= 0 {
		return errors.New("rate_max_requests must be positive")
	}

	for _, p := range gc.ExcludedPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("excluded path must start with /: %s", p)
		}
	}

	return nil
}

func (uc *UpstreamConfig) Validate() error {
	if uc.URL == "" {
		return errors.New("upstream url is required")
	}

	if !strings.HasPrefix(uc.URL, "http://") && !strings.HasPrefix(uc.URL, "https://") {
		return fmt.Errorf("upstream url must be http or https: %s", uc.URL)
	}

	return nil
}

func (stc *StoreConfig) Validate() error {
	switch stc.Type {
	case StoreTypeMemory:
		if stc.Memory.MaxEntries <= 0 {
			return errors.New("memory max_entries must be positive")
		}
		if stc.Memory.SweepInterval <= 0 {
			return errors.New("memory sweep_interval must be positive")
		}
	case StoreTypeRedis:
		if stc.Redis.Addr == "" {
			return errors.New("redis addr is required for redis store")
		}
	default:
		return fmt.Errorf("invalid store type: %s", stc.Type)
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	switch strings.ToLower(lc.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	switch strings.ToLower(lc.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if strings.ToLower(lc.Output) == "file" && lc.FilePath == "" {
		return errors.New("file_path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	return nil
}
