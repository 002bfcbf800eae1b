// Package config holds the event bus configuration and its loaders.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Dispatcher modes
const (
	DispatcherPool      = "pool"
	DispatcherGoroutine = "goroutine"
)

// Subscription ID generators
const (
	IDSequence = "sequence"
	IDUUID     = "uuid"
)

// BusConfig configures an event bus and the services around it.
type BusConfig struct {
	Dispatcher  DispatcherConfig `yaml:"dispatcher" json:"dispatcher"`
	IDGenerator string           `yaml:"id_generator" json:"id_generator"`
	Log         LogConfig        `yaml:"log" json:"log"`
	Metrics     MetricsConfig    `yaml:"metrics" json:"metrics"`
	Tracing     TracingConfig    `yaml:"tracing" json:"tracing"`
}

// DispatcherConfig selects how subscriber callbacks are scheduled.
type DispatcherConfig struct {
	// Mode is "pool" (bounded workers) or "goroutine" (one goroutine per callback)
	Mode string `yaml:"mode" json:"mode"`
	// Workers is the pool size, ignored in goroutine mode
	Workers int `yaml:"workers" json:"workers"`
	// QueueSize is the pool queue length; a full queue overflows onto goroutines
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

// MetricsConfig configures the metrics endpoint
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// TracingConfig configures OpenTelemetry tracing
type TracingConfig struct {
	// Exporter is "stdout", "jaeger", "zipkin" or "none"
	Exporter    string  `yaml:"exporter" json:"exporter"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Environment string  `yaml:"environment" json:"environment"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns the configuration used when no file is given.
func Default() BusConfig {
	return BusConfig{
		Dispatcher: DispatcherConfig{
			Mode:      DispatcherPool,
			Workers:   runtime.NumCPU() * 4,
			QueueSize: 1024,
		},
		IDGenerator: IDSequence,
		Log: LogConfig{
			Level: "INFO",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9464",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "eventbus",
			Environment: "development",
			SampleRate:  1.0,
		},
	}
}

// Load reads a YAML or JSON file over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (BusConfig, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return BusConfig{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return BusConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return BusConfig{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from EVENTBUS_* environment variables.
func (c *BusConfig) ApplyEnv() error {
	if v := getenv("EVENTBUS_DISPATCHER"); v != "" {
		c.Dispatcher.Mode = strings.ToLower(v)
	}
	if err := envInt("EVENTBUS_WORKERS", &c.Dispatcher.Workers); err != nil {
		return err
	}
	if err := envInt("EVENTBUS_QUEUE_SIZE", &c.Dispatcher.QueueSize); err != nil {
		return err
	}
	if v := getenv("EVENTBUS_ID_GENERATOR"); v != "" {
		c.IDGenerator = strings.ToLower(v)
	}
	if v := getenv("EVENTBUS_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToUpper(v)
	}
	if v := getenv("EVENTBUS_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EVENTBUS_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	if v := getenv("EVENTBUS_METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.ListenAddr = v
	}
	if v := getenv("EVENTBUS_TRACING_EXPORTER"); v != "" {
		c.Tracing.Exporter = strings.ToLower(v)
	}
	if v := getenv("EVENTBUS_TRACING_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	return nil
}

// Validate validates the configuration
func (c BusConfig) Validate() error {
	switch c.Dispatcher.Mode {
	case DispatcherPool:
		if c.Dispatcher.Workers <= 0 {
			return fmt.Errorf("dispatcher workers must be positive, got %d", c.Dispatcher.Workers)
		}
		if c.Dispatcher.QueueSize < 0 {
			return fmt.Errorf("dispatcher queue size cannot be negative, got %d", c.Dispatcher.QueueSize)
		}
	case DispatcherGoroutine:
	default:
		return fmt.Errorf("unknown dispatcher mode %q", c.Dispatcher.Mode)
	}

	switch c.IDGenerator {
	case IDSequence, IDUUID:
	default:
		return fmt.Errorf("unknown id generator %q", c.IDGenerator)
	}

	switch c.Log.Level {
	case "DEBUG", "INFO", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics listen address cannot be empty when metrics are enabled")
	}

	switch c.Tracing.Exporter {
	case "stdout", "jaeger", "zipkin", "none":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRate < 0.0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0")
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, target *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = n
	return nil
}
