package config

// TracingConfig configures OTLP trace export. Disabled by default; when
// enabled, spans are shipped over OTLP/HTTP to the configured endpoint.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}
