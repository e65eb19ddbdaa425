// Package config loads the ambient configuration for the telemetry client:
// the collector endpoint (which has no built-in default), debug flag, flush
// tuning, and the logging/metrics/tracing layers around it. The per-call Options
// struct passed to ingest.New always takes precedence over this layer.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level ambient configuration structure.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Client  ClientConfig  `koanf:"client"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
}

// AppConfig holds general host-application identity used to tag logs and spans.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// ClientConfig mirrors the tunables of ingest.Options so they can be baked
// in or overridden by file/env without touching application code.
type ClientConfig struct {
	Endpoint        string        `koanf:"endpoint"`
	FlushInterval   time.Duration `koanf:"flush_interval"`
	BatchSize       int           `koanf:"batch_size"`
	MaxBufferSize   int           `koanf:"max_buffer_size"`
	MaxEventBytes   int           `koanf:"max_event_bytes"`
	MaxStorageBytes int64         `koanf:"max_storage_bytes"`
	StoragePath     string        `koanf:"storage_path"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	TLS             TLSConfig     `koanf:"tls"`
}

// TLSConfig configures the transport's tls.Config.
type TLSConfig struct {
	CertFile           string `koanf:"cert_file"`
	KeyFile            string `koanf:"key_file"`
	CAFile             string `koanf:"ca_file"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// LogConfig controls the client's own debug logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls the optional Prometheus metrics surface.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls the optional OpenTelemetry tracing surface.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate checks the loaded configuration for internally-consistent values.
// It does not repeat the ingest package's own endpoint/API-key validation,
// which only runs once a key is supplied at construction time.
func (c *Config) Validate() error {
	var errs []string

	if c.Client.BatchSize <= 0 {
		errs = append(errs, "client.batch_size must be positive")
	}
	if c.Client.MaxBufferSize <= 0 {
		errs = append(errs, "client.max_buffer_size must be positive")
	}
	if c.Client.MaxBufferSize < c.Client.BatchSize {
		errs = append(errs, "client.max_buffer_size must be >= client.batch_size")
	}
	if c.Client.FlushInterval <= 0 {
		errs = append(errs, "client.flush_interval must be positive")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, "tracing.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is configured for a development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is configured for a production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
