package config

// TracingConfig holds OpenTelemetry trace export settings.
//
// Traces are sent over OTLP HTTP to a local collector/agent. Disabled by
// default; enabling it without a reachable collector degrades gracefully
// (the exporter buffers and drops).
type TracingConfig struct {
	// Enabled turns span export on.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// OTLPEndpoint is the collector's OTLP HTTP host:port (default: localhost:4318).
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`

	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string `mapstructure:"environment" json:"environment"`

	// ServiceName is the service name attached to exported spans.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
