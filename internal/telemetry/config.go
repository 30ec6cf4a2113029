// Package telemetry sets up OpenTelemetry tracing and metrics export for a
// genagent process.
//
// Exporter failures never stop a run. New records the problem, marks the
// instance degraded and leaves the global no-op providers in place.
package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http/protobuf"
)

// Config is the resolved telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string // host:port of the OTLP collector
	Protocol string
	Insecure bool

	SampleRate float64

	ServiceName    string
	ServiceVersion string

	ExportInterval  time.Duration
	ShutdownTimeout time.Duration
}

// NewDefaultConfig is disabled, pointing at a local collector over gRPC.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoint:        "localhost:4317",
		Protocol:        protocolGRPC,
		Insecure:        true,
		SampleRate:      1,
		ServiceName:     "genagent",
		ServiceVersion:  "dev",
		ExportInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromSettings maps the telemetry section of the config file.
func FromSettings(s config.TelemetryConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = s.Enabled
	cfg.Insecure = s.Insecure
	cfg.SampleRate = s.SampleRate
	if s.Endpoint != "" {
		cfg.Endpoint = s.Endpoint
	}
	if s.Protocol != "" {
		cfg.Protocol = s.Protocol
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}

// Validate only checks an enabled config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	} else if c.Insecure && !isLoopback(c.Endpoint) {
		errs = append(errs, fmt.Errorf("insecure connections are only allowed to loopback endpoints, got %q", c.Endpoint))
	}
	if c.ServiceName == "" || c.ServiceVersion == "" {
		errs = append(errs, errors.New("service name and version are required"))
	}
	if c.Protocol != protocolGRPC && c.Protocol != protocolHTTP {
		errs = append(errs, fmt.Errorf("protocol must be %s or %s, got %q", protocolGRPC, protocolHTTP, c.Protocol))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be within [0, 1], got %v", c.SampleRate))
	}
	if c.ExportInterval <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("export interval and shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

func isLoopback(endpoint string) bool {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
