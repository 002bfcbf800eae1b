package otel

import (
	"fmt"

	"github.com/geoyee/eventbus/pkg/config"
)

// Exporter names
const (
	ExporterJaeger = "jaeger"
	ExporterZipkin = "zipkin"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config configures OpenTelemetry
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Exporter is the exporter type: "jaeger", "zipkin", "stdout", "none"
	Exporter string

	// Endpoint is the exporter endpoint URL
	Endpoint string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// SampleRate is the sampling rate (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a default OpenTelemetry configuration
func DefaultConfig() Config {
	return Config{
		ServiceName:    "eventbus",
		ServiceVersion: "1.0.0",
		Exporter:       ExporterNone,
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// ConfigFrom builds a Config from the tracing section of a bus configuration
func ConfigFrom(tc config.TracingConfig, version string) Config {
	c := DefaultConfig()
	if tc.ServiceName != "" {
		c.ServiceName = tc.ServiceName
	}
	if tc.Exporter != "" {
		c.Exporter = tc.Exporter
	}
	if tc.Environment != "" {
		c.Environment = tc.Environment
	}
	if version != "" {
		c.ServiceVersion = version
	}
	c.Endpoint = tc.Endpoint
	c.SampleRate = tc.SampleRate
	return c
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0")
	}
	switch c.Exporter {
	case ExporterJaeger, ExporterZipkin, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("unsupported exporter: %s", c.Exporter)
	}
	return nil
}
