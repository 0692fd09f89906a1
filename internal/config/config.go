package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"zantgate/internal/models"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	warnInertKeys(config)

	return config, nil
}

// warnInertKeys logs a warning for accepted config keys that no decision path
// consults. The service continues to start normally.
func warnInertKeys(config *models.Config) {
	if config.Gateway.PowDifficulty != 0 {
		slog.Warn("Config key is accepted but not consulted by any admission decision; it is kept for config compatibility only.",
			"config_key", "gateway.pow_difficulty")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("ZANTGATE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("ZANTGATE_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("ZANTGATE_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("ZANTGATE_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("ZANTGATE_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("ZANTGATE_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("ZANTGATE_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("ZANTGATE_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Gateway configuration
	if secret := os.Getenv("ZANTGATE_SECRET"); secret != "" {
		config.Gateway.Secret = secret
	}

	if name := os.Getenv("ZANTGATE_SITE_NAME"); name != "" {
		config.Gateway.SiteName = name
	}

	if label := os.Getenv("ZANTGATE_LABEL"); label != "" {
		config.Gateway.Label = label
	}

	if imageURL := os.Getenv("ZANTGATE_QUEUE_IMAGE_URL"); imageURL != "" {
		config.Gateway.QueueImageURL = imageURL
	}

	if name := os.Getenv("ZANTGATE_QUEUE_COOKIE_NAME"); name != "" {
		config.Gateway.QueueCookieName = name
	}

	if name := os.Getenv("ZANTGATE_ACCESS_COOKIE_NAME"); name != "" {
		config.Gateway.AccessCookieName = name
	}

	if wait := os.Getenv("ZANTGATE_WAIT_SECONDS"); wait != "" {
		if w, err := strconv.Atoi(wait); err == nil {
			config.Gateway.WaitSeconds = w
		}
	}

	if lifetime := os.Getenv("ZANTGATE_MAX_LIFETIME"); lifetime != "" {
		if d, err := time.ParseDuration(lifetime); err == nil {
			config.Gateway.MaxLifetime = d
		}
	}

	if fails := os.Getenv("ZANTGATE_MAX_FAILS"); fails != "" {
		if f, err := strconv.Atoi(fails); err == nil {
			config.Gateway.MaxFails = f
		}
	}

	if ban := os.Getenv("ZANTGATE_BAN_SECONDS"); ban != "" {
		if b, err := strconv.Atoi(ban); err == nil {
			config.Gateway.BanSeconds = b
		}
	}

	if fp := os.Getenv("ZANTGATE_FINGERPRINTING"); fp != "" {
		config.Gateway.Fingerprinting = strings.ToLower(fp) == "true"
	}

	if interval := os.Getenv("ZANTGATE_ROTATION_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Gateway.RotationInterval = d
		}
	}

	if threshold := os.Getenv("ZANTGATE_SUSPICION_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			config.Gateway.SuspicionThreshold = t
		}
	}

	if window := os.Getenv("ZANTGATE_RATE_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.Gateway.RateWindow = d
		}
	}

	if maxReq := os.Getenv("ZANTGATE_RATE_MAX_REQUESTS"); maxReq != "" {
		if m, err := strconv.Atoi(maxReq); err == nil {
			config.Gateway.RateMaxRequests = m
		}
	}

	if stylesheet := os.Getenv("ZANTGATE_THEME_STYLESHEET"); stylesheet != "" {
		config.Gateway.ThemeStylesheet = stylesheet
	}

	if secure := os.Getenv("ZANTGATE_SECURE_COOKIES"); secure != "" {
		config.Gateway.SecureCookies = strings.ToLower(secure) == "true"
	}

	// Upstream configuration
	if upstream := os.Getenv("ZANTGATE_UPSTREAM_URL"); upstream != "" {
		config.Upstream.URL = upstream
	}

	if timeout := os.Getenv("ZANTGATE_UPSTREAM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Upstream.Timeout = d
		}
	}

	// Store configuration
	if storeType := os.Getenv("ZANTGATE_STORE_TYPE"); storeType != "" {
		config.Store.Type = storeType
	}

	if addr := os.Getenv("ZANTGATE_REDIS_ADDR"); addr != "" {
		config.Store.Redis.Addr = addr
	}

	if password := os.Getenv("ZANTGATE_REDIS_PASSWORD"); password != "" {
		config.Store.Redis.Password = password
	}

	if db := os.Getenv("ZANTGATE_REDIS_DB"); db != "" {
		if dbNum, err := strconv.Atoi(db); err == nil {
			config.Store.Redis.DB = dbNum
		}
	}

	if poolSize := os.Getenv("ZANTGATE_REDIS_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil {
			config.Store.Redis.PoolSize = size
		}
	}

	// Logging configuration
	if level := os.Getenv("ZANTGATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("ZANTGATE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("ZANTGATE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("ZANTGATE_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("ZANTGATE_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("ZANTGATE_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("ZANTGATE_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Example values an operator must replace
	config.Gateway.Secret = "replace-with-a-long-random-secret"
	config.Gateway.SiteName = "example hidden service"
	config.Upstream.URL = "http://127.0.0.1:3000"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
