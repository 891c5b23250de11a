// Package config provides configuration loading for cadence.
//
// Values come from built-in defaults, an optional YAML file and CADENCE_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fyrsmithlabs/cadence/internal/sanitize"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// MinCycleLength mirrors the shortest cycle the phase calculator accepts.
const MinCycleLength = 21

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Source modes.
const (
	SourceModeHeuristic = "heuristic"
	SourceModeHTTP      = "http"
	SourceModeLLM       = "llm"
)

// Config holds the complete cadence configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Planning  PlanningConfig  `koanf:"planning"`
	Cache     CacheConfig     `koanf:"cache"`
	Store     StoreConfig     `koanf:"store"`
	Sources   SourcesConfig   `koanf:"sources"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PlanningConfig holds orchestration settings.
type PlanningConfig struct {
	DefaultCycleLength   int      `koanf:"default_cycle_length"`
	OrchestrationTimeout Duration `koanf:"orchestration_timeout"`
	RecentLogLimit       int      `koanf:"recent_log_limit"`
	PlanDays             int      `koanf:"plan_days"`
	DefaultTimezone      string   `koanf:"default_timezone"`
}

// CacheConfig holds decision cache settings.
type CacheConfig struct {
	DefaultTTL  Duration `koanf:"default_ttl"`
	DegradedTTL Duration `koanf:"degraded_ttl"`
	MaxEntries  int      `koanf:"max_entries"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// SourcesConfig selects how each recommendation source is evaluated.
type SourcesConfig struct {
	// Mode applies to every source not listed in Overrides.
	Mode      string            `koanf:"mode"`
	Overrides map[string]string `koanf:"overrides"`

	Endpoint   string   `koanf:"endpoint"`
	APIKey     Secret   `koanf:"api_key"`
	Timeout    Duration `koanf:"timeout"`
	RateLimit  float64  `koanf:"rate_limit"`
	Burst      int      `koanf:"burst"`
	MaxRetries int      `koanf:"max_retries"`
	Backoff    Duration `koanf:"backoff"`

	LLMBaseURL string `koanf:"llm_base_url"`
	LLMModel   string `koanf:"llm_model"`
	LLMAPIKey  Secret `koanf:"llm_api_key"`
}

// ModeFor returns the evaluation mode for a source.
func (s SourcesConfig) ModeFor(id string) string {
	if m, ok := s.Overrides[id]; ok && m != "" {
		return m
	}
	return s.Mode
}

// EventsConfig holds NATS publishing settings. An empty URL disables
// publishing.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig holds the logging settings exposed through config.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server port %d must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("shutdown timeout must be positive")
	}

	if c.Planning.DefaultCycleLength < MinCycleLength {
		add("default cycle length %d is below %d", c.Planning.DefaultCycleLength, MinCycleLength)
	}
	if c.Planning.OrchestrationTimeout <= 0 {
		add("orchestration timeout must be positive")
	}
	if c.Planning.RecentLogLimit < 0 {
		add("recent log limit must not be negative")
	}
	if c.Planning.PlanDays < 1 {
		add("plan days must be at least 1")
	}
	if _, err := time.LoadLocation(c.Planning.DefaultTimezone); err != nil {
		add("default timezone %q: %v", c.Planning.DefaultTimezone, err)
	}

	if c.Cache.DefaultTTL <= 0 || c.Cache.DegradedTTL <= 0 {
		add("cache TTLs must be positive")
	}
	if c.Cache.DegradedTTL > c.Cache.DefaultTTL {
		add("degraded TTL %s exceeds default TTL %s", c.Cache.DegradedTTL.Duration(), c.Cache.DefaultTTL.Duration())
	}
	if c.Cache.MaxEntries < 1 {
		add("cache max entries must be at least 1")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			add("sqlite store requires a path")
		} else if _, err := sanitize.ValidatePath(c.Store.Path, ""); err != nil {
			add("store path: %v", err)
		}
	default:
		add("unknown store driver %q", c.Store.Driver)
	}

	modes := []string{SourceModeHeuristic, SourceModeHTTP, SourceModeLLM}
	usesHTTP, usesLLM := false, false
	check := func(name, mode string) {
		if !slices.Contains(modes, mode) {
			add("source %s: unknown mode %q", name, mode)
		}
		usesHTTP = usesHTTP || mode == SourceModeHTTP
		usesLLM = usesLLM || mode == SourceModeLLM
	}
	check("default", c.Sources.Mode)
	for id, mode := range c.Sources.Overrides {
		check(id, mode)
	}
	if usesHTTP && c.Sources.Endpoint == "" {
		add("http sources require an endpoint")
	}
	if usesLLM && c.Sources.LLMModel == "" {
		add("llm sources require a model")
	}
	if c.Sources.MaxRetries < 0 {
		add("source max retries must not be negative")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		add("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		add("service name required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry sample rate must be within [0,1]")
	}

	return errors.Join(errs...)
}
