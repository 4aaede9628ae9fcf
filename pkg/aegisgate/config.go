package aegisgate

import "github.com/ghalamif/AegisGate/internal/app/config"

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// ReceiverConfig controls the receiver size cap and socket buffers.
	ReceiverConfig = config.ReceiverConfig
	// SourceLimiterConfig controls per-source admission.
	SourceLimiterConfig = config.SourceLimiterConfig
	// MetricsParserConfig bounds the metrics JSON schema.
	MetricsParserConfig = config.MetricsParserConfig
	// LogParserConfig bounds the logfmt grammar.
	LogParserConfig = config.LogParserConfig
	// ValidatorConfig holds the semantic rules.
	ValidatorConfig = config.ValidatorConfig
	// ForwarderConfig bounds the queue and per-agent quota.
	ForwarderConfig = config.ForwarderConfig
	// SinkConfig selects and configures the downstream sink.
	SinkConfig = config.SinkConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	return config.Default()
}
