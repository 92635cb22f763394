// Package config provides hierarchical configuration loading for Zasterix.
// Precedence: defaults < YAML file < .env file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Zasterix core service.
type Config struct {
	Server      Server      `yaml:"server"`
	Store       Store       `yaml:"store"`
	Postgres    Postgres    `yaml:"postgres"`
	NATS        NATS        `yaml:"nats"`
	Logging     Logging     `yaml:"logging"`
	Breaker     Breaker     `yaml:"breaker"`
	Rate        Rate        `yaml:"rate"`
	Sessions    Sessions    `yaml:"sessions"`
	Cache       Cache       `yaml:"cache"`
	Queue       Queue       `yaml:"queue"`
	Idempotency Idempotency `yaml:"idempotency"`
	Telemetry   Telemetry   `yaml:"telemetry"`
	MCP         MCP         `yaml:"mcp"`
	Tools       Tools       `yaml:"tools"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	PublicURL       string        `yaml:"public_url"` // advertised in the agent card
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SeedTemplates   bool          `yaml:"seed_templates"` // register well-known templates at startup
}

// Store holds the relational store endpoint and access keys. Keys are usually
// supplied through the environment, never through the YAML file.
type Store struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"-"`
	AnonKey        string `yaml:"-"`
}

// Postgres holds PostgreSQL pool configuration.
type Postgres struct {
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// NATS holds NATS JetStream configuration. An empty URL disables the bus.
type NATS struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level      string `yaml:"level"`
	Service    string `yaml:"service"`
	Async      bool   `yaml:"async"`
	BufferSize int    `yaml:"buffer_size"`
	Workers    int    `yaml:"workers"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Sessions holds the lifetime of mounted module sessions. Sessions idle for
// longer than IdleTTL are unmounted by a sweep every SweepInterval.
type Sessions struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Cache holds the tiered template cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L1TTL       time.Duration `yaml:"l1_ttl"`
	L2Bucket    string        `yaml:"l2_bucket"`
	L2TTL       time.Duration `yaml:"l2_ttl"`
}

// Queue holds the best-effort background queue configuration.
type Queue struct {
	Workers     int           `yaml:"workers"`
	Size        int           `yaml:"size"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
}

// Idempotency holds the idempotency-key store configuration.
type Idempotency struct {
	Bucket string        `yaml:"bucket"`
	TTL    time.Duration `yaml:"ttl"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// MCP holds the MCP server configuration. An empty APIKey disables auth.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"-"`
}

// Tools holds tool capability configuration.
type Tools struct {
	DeepLinkScheme string `yaml:"deep_link_scheme"`
}

// Defaults returns a Config with sensible default values for local development.
// The store has no URL or keys by default and is therefore not configured.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			CORSOrigin:      "http://localhost:3000",
			PublicURL:       "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
			SeedTemplates:   true,
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
			AutoMigrate:     true,
		},
		NATS: NATS{
			URL:    "nats://localhost:4222",
			Stream: "ZASTERIX",
		},
		Logging: Logging{
			Level:      "info",
			Service:    "zasterix-core",
			BufferSize: 10000,
			Workers:    4,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Sessions: Sessions{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Cache: Cache{
			L1MaxSizeMB: 16,
			L1TTL:       30 * time.Second,
			L2Bucket:    "ZASTERIX_CACHE",
			L2TTL:       5 * time.Minute,
		},
		Queue: Queue{
			Workers:     2,
			Size:        256,
			MaxAttempts: 3,
			Backoff:     500 * time.Millisecond,
			JobTimeout:  5 * time.Second,
		},
		Idempotency: Idempotency{
			Bucket: "ZASTERIX_IDEMPOTENCY",
			TTL:    24 * time.Hour,
		},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "zasterix-core",
			SampleRate:  1.0,
		},
		MCP: MCP{
			Enabled: true,
		},
		Tools: Tools{
			DeepLinkScheme: "yuh",
		},
	}
}
