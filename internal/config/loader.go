package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tutortrainer.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TUTOR_PORT")
	setString(&cfg.Server.CORSOrigin, "TUTOR_CORS_ORIGIN")
	setString(&cfg.Storage.Driver, "TUTOR_STORAGE_DRIVER")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TUTOR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TUTOR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TUTOR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TUTOR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TUTOR_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Assistants.URL, "TUTOR_ASSISTANTS_URL")
	setString(&cfg.Assistants.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Assistants.Tutor, "TUTOR_ASSISTANT_TUTOR")
	setString(&cfg.Assistants.Evaluator, "TUTOR_ASSISTANT_EVALUATOR")
	setDuration(&cfg.Assistants.PollInterval, "TUTOR_RUN_POLL_INTERVAL")
	setDuration(&cfg.Assistants.PollMaxInterval, "TUTOR_RUN_POLL_MAX_INTERVAL")
	setDuration(&cfg.Assistants.RunTimeout, "TUTOR_RUN_TIMEOUT")
	setString(&cfg.Logging.Level, "TUTOR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TUTOR_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TUTOR_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TUTOR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TUTOR_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "TUTOR_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TUTOR_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.TTL, "TUTOR_CACHE_TTL")
	setString(&cfg.Export.Directory, "TUTOR_EXPORT_DIR")
	setStringSlice(&cfg.Staff.Usernames, "TUTOR_STAFF_USERNAMES")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// validate rejects configurations the service cannot start with.
func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres or memory, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "postgres" && cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Assistants.URL == "" {
		return errors.New("assistants.url is required")
	}
	if cfg.Assistants.Tutor == "" {
		return errors.New("assistants.tutor is required")
	}
	if cfg.Assistants.PollInterval <= 0 || cfg.Assistants.RunTimeout <= 0 {
		return errors.New("assistant run polling intervals must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
