package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/forward"
	"github.com/ghalamif/AegisGate/internal/limiter"
	"github.com/ghalamif/AegisGate/internal/parse"
	"github.com/ghalamif/AegisGate/internal/validate"
)

type Config struct {
	Bind          string              `yaml:"bind"`
	Receiver      ReceiverConfig      `yaml:"receiver"`
	SourceLimiter SourceLimiterConfig `yaml:"source_limiter"`
	MetricsParser MetricsParserConfig `yaml:"metrics_parser"`
	LogParser     LogParserConfig     `yaml:"log_parser"`
	Validator     ValidatorConfig     `yaml:"validator"`
	Forwarder     ForwarderConfig     `yaml:"forwarder"`
	Sink          SinkConfig          `yaml:"sink"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	LogLevel      string              `yaml:"log_level"`
}

type ReceiverConfig struct {
	MaxDatagramBytes int `yaml:"max_datagram_bytes"`
	RecvBufferBytes  int `yaml:"recv_buffer_bytes"`
}

type SourceLimiterConfig struct {
	MaxSources   int     `yaml:"max_sources"`
	TokensPerSec float64 `yaml:"tokens_per_sec"`
	BurstTokens  float64 `yaml:"burst_tokens"`
}

type MetricsParserConfig struct {
	MaxInputBytes    int `yaml:"max_input_bytes"`
	MaxNestingDepth  int `yaml:"max_nesting_depth"`
	MaxMetrics       int `yaml:"max_metrics"`
	MaxTags          int `yaml:"max_tags"`
	MaxAgentIDLen    int `yaml:"max_agent_id_len"`
	MaxMetricNameLen int `yaml:"max_metric_name_len"`
	MaxUnitLen       int `yaml:"max_unit_len"`
	MaxTagKeyLen     int `yaml:"max_tag_key_len"`
	MaxTagValueLen   int `yaml:"max_tag_value_len"`
}

type LogParserConfig struct {
	MaxLineBytes int `yaml:"max_line_bytes"`
	MaxFields    int `yaml:"max_fields"`
	MaxKeyLen    int `yaml:"max_key_len"`
	MaxValueLen  int `yaml:"max_value_len"`
}

type ValidatorConfig struct {
	MaxAgeMS                 int64    `yaml:"max_age_ms"`
	MaxFutureMS              int64    `yaml:"max_future_ms"`
	MinLevel                 string   `yaml:"min_level"`
	MaxMessageLength         int      `yaml:"max_message_length"`
	TruncateOversizedMessage *bool    `yaml:"truncate_oversized_message"`
	RequireTimestamp         *bool    `yaml:"require_timestamp"`
	RequireAgentID           bool     `yaml:"require_agent_id"`
	RejectNaN                *bool    `yaml:"reject_nan"`
	RejectInfinity           *bool    `yaml:"reject_infinity"`
	MinValue                 *float64 `yaml:"min_value"`
	MaxValue                 *float64 `yaml:"max_value"`
}

type ForwarderConfig struct {
	MaxQueueDepth int `yaml:"max_queue_depth"`
	MaxPerAgent   int `yaml:"max_per_agent"`
}

type SinkConfig struct {
	Type       string `yaml:"type"` // stdout | null | postgres
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
	SlowMS     int    `yaml:"slow_ms"` // >0 wraps the sink with an artificial delay
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	if c.Bind == "" {
		c.Bind = ":9999"
	}
	if c.Receiver.MaxDatagramBytes == 0 {
		c.Receiver.MaxDatagramBytes = 1472
	}
	if c.Receiver.RecvBufferBytes == 0 {
		c.Receiver.RecvBufferBytes = 256 * 1024
	}

	if c.SourceLimiter.MaxSources == 0 {
		c.SourceLimiter.MaxSources = 1024
	}
	if c.SourceLimiter.TokensPerSec == 0 {
		c.SourceLimiter.TokensPerSec = 100
	}
	if c.SourceLimiter.BurstTokens == 0 {
		c.SourceLimiter.BurstTokens = 200
	}

	lim := parse.DefaultMetricsLimits()
	if c.MetricsParser.MaxInputBytes == 0 {
		c.MetricsParser.MaxInputBytes = lim.MaxInputBytes
	}
	if c.MetricsParser.MaxNestingDepth == 0 {
		c.MetricsParser.MaxNestingDepth = lim.MaxNestingDepth
	}
	if c.MetricsParser.MaxMetrics == 0 {
		c.MetricsParser.MaxMetrics = lim.MaxMetrics
	}
	if c.MetricsParser.MaxTags == 0 {
		c.MetricsParser.MaxTags = lim.MaxTags
	}
	if c.MetricsParser.MaxAgentIDLen == 0 {
		c.MetricsParser.MaxAgentIDLen = lim.MaxAgentIDLen
	}
	if c.MetricsParser.MaxMetricNameLen == 0 {
		c.MetricsParser.MaxMetricNameLen = lim.MaxMetricNameLen
	}
	if c.MetricsParser.MaxUnitLen == 0 {
		c.MetricsParser.MaxUnitLen = lim.MaxUnitLen
	}
	if c.MetricsParser.MaxTagKeyLen == 0 {
		c.MetricsParser.MaxTagKeyLen = lim.MaxTagKeyLen
	}
	if c.MetricsParser.MaxTagValueLen == 0 {
		c.MetricsParser.MaxTagValueLen = lim.MaxTagValueLen
	}

	loglim := parse.DefaultLogLimits()
	if c.LogParser.MaxLineBytes == 0 {
		c.LogParser.MaxLineBytes = loglim.MaxLineBytes
	}
	if c.LogParser.MaxFields == 0 {
		c.LogParser.MaxFields = loglim.MaxFields
	}
	if c.LogParser.MaxKeyLen == 0 {
		c.LogParser.MaxKeyLen = loglim.MaxKeyLen
	}
	if c.LogParser.MaxValueLen == 0 {
		c.LogParser.MaxValueLen = loglim.MaxValueLen
	}

	if c.Validator.MaxAgeMS == 0 {
		c.Validator.MaxAgeMS = 300_000
	}
	if c.Validator.MaxFutureMS == 0 {
		c.Validator.MaxFutureMS = 60_000
	}
	if c.Validator.MinLevel == "" {
		c.Validator.MinLevel = "trace"
	}
	if c.Validator.MaxMessageLength == 0 {
		c.Validator.MaxMessageLength = 1024
	}
	if c.Validator.TruncateOversizedMessage == nil {
		c.Validator.TruncateOversizedMessage = boolPtr(true)
	}
	if c.Validator.RequireTimestamp == nil {
		c.Validator.RequireTimestamp = boolPtr(true)
	}
	if c.Validator.RejectNaN == nil {
		c.Validator.RejectNaN = boolPtr(true)
	}
	if c.Validator.RejectInfinity == nil {
		c.Validator.RejectInfinity = boolPtr(true)
	}
	if c.Validator.MinValue == nil {
		c.Validator.MinValue = floatPtr(-1e15)
	}
	if c.Validator.MaxValue == nil {
		c.Validator.MaxValue = floatPtr(1e15)
	}

	if c.Forwarder.MaxQueueDepth == 0 {
		c.Forwarder.MaxQueueDepth = 4096
	}
	if c.Forwarder.MaxPerAgent == 0 {
		c.Forwarder.MaxPerAgent = 64
	}

	if c.Sink.Type == "" {
		c.Sink.Type = "stdout"
	}
	if c.Sink.Table == "" {
		c.Sink.Table = "events"
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if c.Receiver.MaxDatagramBytes < 2 {
		return fmt.Errorf("receiver.max_datagram_bytes must be >= 2")
	}
	if c.SourceLimiter.MaxSources <= 0 {
		return fmt.Errorf("source_limiter.max_sources must be > 0")
	}
	if c.SourceLimiter.TokensPerSec <= 0 {
		return fmt.Errorf("source_limiter.tokens_per_sec must be > 0")
	}
	if c.SourceLimiter.BurstTokens <= 0 {
		return fmt.Errorf("source_limiter.burst_tokens must be > 0")
	}
	if _, ok := domain.ParseLogLevel([]byte(c.Validator.MinLevel)); !ok {
		return fmt.Errorf("validator.min_level %q is not a log level", c.Validator.MinLevel)
	}
	if *c.Validator.MinValue > *c.Validator.MaxValue {
		return fmt.Errorf("validator.min_value must be <= validator.max_value")
	}
	if c.Forwarder.MaxQueueDepth <= 0 {
		return fmt.Errorf("forwarder.max_queue_depth must be > 0")
	}
	if c.Forwarder.MaxPerAgent <= 0 {
		return fmt.Errorf("forwarder.max_per_agent must be > 0")
	}
	switch c.Sink.Type {
	case "stdout", "null", "postgres":
	default:
		return fmt.Errorf("sink.type %q is not recognized", c.Sink.Type)
	}
	if c.Sink.Type == "postgres" && c.Sink.ConnString == "" {
		return fmt.Errorf("sink.conn_string is required for the postgres sink")
	}
	return nil
}

// MetricsLimits converts the parser section into the parse package's limits.
func (c *Config) MetricsLimits() parse.MetricsLimits {
	return parse.MetricsLimits{
		MaxInputBytes:    c.MetricsParser.MaxInputBytes,
		MaxNestingDepth:  c.MetricsParser.MaxNestingDepth,
		MaxMetrics:       c.MetricsParser.MaxMetrics,
		MaxTags:          c.MetricsParser.MaxTags,
		MaxAgentIDLen:    c.MetricsParser.MaxAgentIDLen,
		MaxMetricNameLen: c.MetricsParser.MaxMetricNameLen,
		MaxUnitLen:       c.MetricsParser.MaxUnitLen,
		MaxTagKeyLen:     c.MetricsParser.MaxTagKeyLen,
		MaxTagValueLen:   c.MetricsParser.MaxTagValueLen,
	}
}

func (c *Config) LogLimits() parse.LogLimits {
	return parse.LogLimits{
		MaxLineBytes: c.LogParser.MaxLineBytes,
		MaxFields:    c.LogParser.MaxFields,
		MaxKeyLen:    c.LogParser.MaxKeyLen,
		MaxValueLen:  c.LogParser.MaxValueLen,
	}
}

// MetricsRules converts the validator section into the metrics rule set.
// Call after ApplyDefaults.
func (c *Config) MetricsRules() validate.MetricsConfig {
	return validate.MetricsConfig{
		Window: validate.TimestampWindow{
			MaxAgeMS:    c.Validator.MaxAgeMS,
			MaxFutureMS: c.Validator.MaxFutureMS,
		},
		MinValue:         *c.Validator.MinValue,
		MaxValue:         *c.Validator.MaxValue,
		RejectNaN:        *c.Validator.RejectNaN,
		RejectInfinity:   *c.Validator.RejectInfinity,
		RequireTimestamp: *c.Validator.RequireTimestamp,
	}
}

// LogRules converts the validator section into the log rule set. Call after
// ApplyDefaults; the level string was checked by Validate.
func (c *Config) LogRules() validate.LogConfig {
	level, _ := domain.ParseLogLevel([]byte(c.Validator.MinLevel))
	return validate.LogConfig{
		Window: validate.TimestampWindow{
			MaxAgeMS:    c.Validator.MaxAgeMS,
			MaxFutureMS: c.Validator.MaxFutureMS,
		},
		MinLevel:                 level,
		MaxMessageLength:         c.Validator.MaxMessageLength,
		TruncateOversizedMessage: *c.Validator.TruncateOversizedMessage,
		RequireAgentID:           c.Validator.RequireAgentID,
	}
}

func (c *Config) LimiterConfig() limiter.Config {
	return limiter.Config{
		MaxSources:   c.SourceLimiter.MaxSources,
		TokensPerSec: c.SourceLimiter.TokensPerSec,
		BurstTokens:  c.SourceLimiter.BurstTokens,
	}
}

func (c *Config) ForwarderConfig() forward.Config {
	return forward.Config{
		MaxQueueDepth: c.Forwarder.MaxQueueDepth,
		MaxPerAgent:   c.Forwarder.MaxPerAgent,
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
