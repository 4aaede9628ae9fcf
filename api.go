package aegisgate

import (
	base "github.com/ghalamif/AegisGate/pkg/aegisgate"
)

// Re-exported errors for convenience.
var (
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisGate directly.
type (
	Config               = base.Config
	ReceiverConfig       = base.ReceiverConfig
	SourceLimiterConfig  = base.SourceLimiterConfig
	MetricsParserConfig  = base.MetricsParserConfig
	LogParserConfig      = base.LogParserConfig
	ValidatorConfig      = base.ValidatorConfig
	ForwarderConfig      = base.ForwarderConfig
	SinkConfig           = base.SinkConfig
	MetricsConfig        = base.MetricsConfig
	Flow                 = base.Flow
	FlowOption           = base.FlowOption
	StreamInOption       = base.StreamInOption
	StreamOutOption      = base.StreamOutOption
	GatewayRuntime       = base.GatewayRuntime
	GatewayRuntimeOption = base.GatewayRuntimeOption
	QueuedEvent          = base.QueuedEvent
	EventKind            = base.EventKind
	SourceKey            = base.SourceKey
	LogLevel             = base.LogLevel
	Receiver             = base.Receiver
	RecvResult           = base.RecvResult
	RecvStatus           = base.RecvStatus
	Sink                 = base.Sink
	Observability        = base.Observability
	Field                = base.Field
	Clock                = base.Clock
	SystemClock          = base.SystemClock
	PayloadSink          = base.PayloadSink
	PipelineStats        = base.PipelineStats
	Emitter              = base.Emitter
	EmitMetric           = base.EmitMetric
)

// Re-exported constants.
const (
	KindMetrics = base.KindMetrics
	KindLog     = base.KindLog

	LevelTrace = base.LevelTrace
	LevelDebug = base.LevelDebug
	LevelInfo  = base.LevelInfo
	LevelWarn  = base.LevelWarn
	LevelError = base.LevelError
	LevelFatal = base.LevelFatal

	RecvOK         = base.RecvOK
	RecvTruncated  = base.RecvTruncated
	RecvWouldBlock = base.RecvWouldBlock
	RecvError      = base.RecvError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...GatewayRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInReceiver(r Receiver) StreamInOption {
	return base.StreamInReceiver(r)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamInClock(c Clock) StreamInOption {
	return base.StreamInClock(c)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn PayloadSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Gateway runtime and options.
func NewGatewayRuntime(cfg *Config, opts ...GatewayRuntimeOption) (*GatewayRuntime, error) {
	return base.NewGatewayRuntime(cfg, opts...)
}

func WithReceiver(r Receiver) GatewayRuntimeOption {
	return base.WithReceiver(r)
}

func WithSink(s Sink) GatewayRuntimeOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) GatewayRuntimeOption {
	return base.WithObservability(obs)
}

func WithClock(c Clock) GatewayRuntimeOption {
	return base.WithClock(c)
}

// Sink adapters.
func NewCallbackSink(name string, fn PayloadSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []byte, func()) {
	return base.NewChannelSink(name, buffer)
}

// Emitter.
func NewEmitter(addr string) (*Emitter, error) {
	return base.NewEmitter(addr)
}
