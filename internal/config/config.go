// Package config centralises configuration parsing for the sign-up service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures runtime configuration values for the sign-up service.
type Config struct {
	HTTPAddress        string
	LogLevel           string
	LogFormat          string
	SeedFile           string // Empty selects the embedded catalog.
	EnforceCapacity    bool
	CORSAllowedOrigins []string
	KafkaBrokers       []string // Empty disables the event feed.
	EventsTopic        string
	SchemaRegistryURL  string
	EventsPollInterval time.Duration
	EventsBatchSize    int
	EventsQueueSize    int
	ShutdownTimeout    time.Duration
}

// EventsEnabled reports whether registration events should be sent to Kafka.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads environment variables, optionally seeded from a .env file, into
// Config and applies defaults for local dev.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		SeedFile:           strings.TrimSpace(v.GetString("SEED_FILE")),
		EnforceCapacity:    v.GetBool("ENFORCE_CAPACITY"),
		CORSAllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
		KafkaBrokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		EventsTopic:        v.GetString("EVENTS_TOPIC"),
		SchemaRegistryURL:  strings.TrimSpace(v.GetString("SCHEMA_REGISTRY_URL")),
		EventsPollInterval: v.GetDuration("EVENTS_POLL_INTERVAL"),
		EventsBatchSize:    v.GetInt("EVENTS_BATCH_SIZE"),
		EventsQueueSize:    v.GetInt("EVENTS_QUEUE_SIZE"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("ENFORCE_CAPACITY", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_TOPIC", "activity_registrations")
	v.SetDefault("SCHEMA_REGISTRY_URL", "")
	v.SetDefault("EVENTS_POLL_INTERVAL", time.Second)
	v.SetDefault("EVENTS_BATCH_SIZE", 50)
	v.SetDefault("EVENTS_QUEUE_SIZE", 1024)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddress) == "" {
		errs = append(errs, errors.New("HTTP_ADDRESS must not be empty"))
	}
	if c.EventsPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("EVENTS_POLL_INTERVAL must be > 0, got %s", c.EventsPollInterval))
	}
	if c.EventsBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EVENTS_BATCH_SIZE must be > 0, got %d", c.EventsBatchSize))
	}
	if c.EventsQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("EVENTS_QUEUE_SIZE must be > 0, got %d", c.EventsQueueSize))
	}
	if c.EventsEnabled() && strings.TrimSpace(c.EventsTopic) == "" {
		errs = append(errs, errors.New("EVENTS_TOPIC must not be empty when KAFKA_BROKERS is set"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0, got %s", c.ShutdownTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
