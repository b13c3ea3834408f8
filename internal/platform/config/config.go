// Package config loads the process configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"chronicle/internal/audit"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Log      LogConfig      `envPrefix:"LOG_"`
	Audit    AuditConfig    `envPrefix:"AUDIT_"`
	Admin    AdminConfig    `envPrefix:"ADMIN_"`
}

// AdminConfig seeds the bootstrap administrator account.
type AdminConfig struct {
	Email    string `env:"EMAIL" envDefault:"admin@example.com"`
	Password string `env:"PASSWORD" envDefault:"change-me"`
}

type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// JWTSigningKey must be overridden in production.
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
}

type DatabaseConfig struct {
	// URL is a postgres connection string. Empty runs the in-memory store.
	URL string `env:"URL"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type RedisConfig struct {
	// URL is optional; when empty the cleanup lock is process-local only.
	URL string `env:"URL"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type AuditConfig struct {
	Enabled             bool     `env:"ENABLED" envDefault:"true"`
	RedactedValues      []string `env:"REDACTED_VALUES" envDefault:"password,secret,token,authorization,apiKey,resetPasswordToken"`
	ExcludeEndpoints    []string `env:"EXCLUDE_ENDPOINTS"`
	ExcludeContentTypes []string `env:"EXCLUDE_CONTENT_TYPES"`

	// TrackedEvents empty means the full default set.
	TrackedEvents []string `env:"TRACKED_EVENTS"`

	QueueSize int `env:"QUEUE_SIZE" envDefault:"1024"`

	RetentionEnabled   bool   `env:"RETENTION_ENABLED" envDefault:"true"`
	RetentionFrequency string `env:"RETENTION_FREQUENCY" envDefault:"logAge"`
	RetentionValue     int    `env:"RETENTION_VALUE" envDefault:"90"`
	RetentionInterval  string `env:"RETENTION_INTERVAL" envDefault:"day"`
	CleanupSchedule    string `env:"CLEANUP_SCHEDULE" envDefault:"0 0 * * *"`
}

// Load parses the full configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ToAudit converts the environment shape into the audit domain config.
func (c AuditConfig) ToAudit() audit.Config {
	tracked := c.TrackedEvents
	if len(tracked) == 0 {
		tracked = audit.DefaultTrackedEvents()
	}
	return audit.Config{
		Enabled:             c.Enabled,
		RedactedValues:      c.RedactedValues,
		ExcludeEndpoints:    c.ExcludeEndpoints,
		ExcludeContentTypes: c.ExcludeContentTypes,
		TrackedEvents:       tracked,
		Deletion: audit.DeletionConfig{
			Enabled:   c.RetentionEnabled,
			Frequency: audit.RetentionFrequency(c.RetentionFrequency),
			Value:     c.RetentionValue,
			Interval:  audit.RetentionInterval(c.RetentionInterval),
		},
	}
}
