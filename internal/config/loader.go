package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zasterix/zasterix/internal/secrets"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "zasterix.yaml"

// DefaultEnvFile is the .env file loaded before the environment overlay.
const DefaultEnvFile = ".env"

// Fallback chains for the store credentials, highest priority first.
var (
	StoreURLKeys     = []string{"ZASTERIX_STORE_URL", "DATABASE_URL"}
	ServiceRoleKeys  = []string{"ZASTERIX_SERVICE_ROLE_KEY", "ZASTERIX_SERVICE_KEY"}
	AnonKeys         = []string{"ZASTERIX_ANON_KEY", "ZASTERIX_PUBLIC_ANON_KEY"}
	MCPAPIKeys       = []string{"ZASTERIX_MCP_API_KEY"}
	credentialChains = [][]string{StoreURLKeys, ServiceRoleKeys, AnonKeys, MCPAPIKeys}
)

// SecretKeys returns every environment key that may carry a credential.
func SecretKeys() []string {
	var keys []string
	for _, chain := range credentialChains {
		keys = append(keys, chain...)
	}
	return keys
}

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// YAML and .env files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < .env < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := ApplySecrets(&cfg, secrets.EnvLoader(SecretKeys()...)); err != nil {
		return nil, fmt.Errorf("config secrets: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// ApplySecrets resolves the credential fallback chains from loader and
// overlays every non-empty result onto cfg.
func ApplySecrets(cfg *Config, loader secrets.Loader) error {
	v, err := secrets.NewVault(loader)
	if err != nil {
		return err
	}
	overlay := func(dst *string, chain []string) {
		val, from := v.First(chain...)
		if val == "" {
			return
		}
		*dst = val
		slog.Debug("secret resolved", "key", from, "value", v.Redacted(from))
	}
	overlay(&cfg.Store.URL, StoreURLKeys)
	overlay(&cfg.Store.ServiceRoleKey, ServiceRoleKeys)
	overlay(&cfg.Store.AnonKey, AnonKeys)
	overlay(&cfg.MCP.APIKey, MCPAPIKeys)
	return nil
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

// loadDotEnv exports the variables of a .env file into the process
// environment without overriding variables that are already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ZASTERIX_PORT")
	setString(&cfg.Server.CORSOrigin, "ZASTERIX_CORS_ORIGIN")
	setString(&cfg.Server.PublicURL, "ZASTERIX_PUBLIC_URL")
	setDuration(&cfg.Server.ShutdownTimeout, "ZASTERIX_SHUTDOWN_TIMEOUT")
	setBool(&cfg.Server.SeedTemplates, "ZASTERIX_SEED_TEMPLATES")

	setInt32(&cfg.Postgres.MaxConns, "ZASTERIX_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ZASTERIX_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ZASTERIX_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ZASTERIX_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ZASTERIX_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "ZASTERIX_PG_AUTO_MIGRATE")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "ZASTERIX_NATS_STREAM")

	setString(&cfg.Logging.Level, "ZASTERIX_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ZASTERIX_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ZASTERIX_LOG_ASYNC")
	setInt(&cfg.Logging.BufferSize, "ZASTERIX_LOG_BUFFER_SIZE")
	setInt(&cfg.Logging.Workers, "ZASTERIX_LOG_WORKERS")

	setInt(&cfg.Breaker.MaxFailures, "ZASTERIX_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ZASTERIX_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "ZASTERIX_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ZASTERIX_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "ZASTERIX_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "ZASTERIX_RATE_MAX_IDLE_TIME")

	setDuration(&cfg.Sessions.IdleTTL, "ZASTERIX_SESSION_IDLE_TTL")
	setDuration(&cfg.Sessions.SweepInterval, "ZASTERIX_SESSION_SWEEP_INTERVAL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "ZASTERIX_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "ZASTERIX_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Bucket, "ZASTERIX_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "ZASTERIX_CACHE_L2_TTL")

	// Queue
	setInt(&cfg.Queue.Workers, "ZASTERIX_QUEUE_WORKERS")
	setInt(&cfg.Queue.Size, "ZASTERIX_QUEUE_SIZE")
	setInt(&cfg.Queue.MaxAttempts, "ZASTERIX_QUEUE_MAX_ATTEMPTS")
	setDuration(&cfg.Queue.Backoff, "ZASTERIX_QUEUE_BACKOFF")
	setDuration(&cfg.Queue.JobTimeout, "ZASTERIX_QUEUE_JOB_TIMEOUT")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "ZASTERIX_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "ZASTERIX_IDEMPOTENCY_TTL")

	// Telemetry
	setBool(&cfg.Telemetry.Enabled, "ZASTERIX_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "ZASTERIX_OTEL_INSECURE")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
	setFloat64(&cfg.Telemetry.SampleRate, "ZASTERIX_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "ZASTERIX_MCP_ENABLED")
	setString(&cfg.Tools.DeepLinkScheme, "ZASTERIX_DEEPLINK_SCHEME")
}

// validate checks that required fields are set. Missing store credentials
// are not a validation error; they put the store into the not configured state.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Sessions.IdleTTL <= 0 || cfg.Sessions.SweepInterval <= 0 {
		return errors.New("sessions.idle_ttl and sessions.sweep_interval must be > 0")
	}
	if cfg.Queue.Workers < 1 || cfg.Queue.Size < 1 {
		return errors.New("queue.workers and queue.size must be >= 1")
	}
	if cfg.Queue.MaxAttempts < 1 {
		return errors.New("queue.max_attempts must be >= 1")
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		return errors.New("telemetry.sample_rate must be within [0, 1]")
	}
	if cfg.Tools.DeepLinkScheme == "" {
		return errors.New("tools.deep_link_scheme is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
