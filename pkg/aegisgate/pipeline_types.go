package aegisgate

import (
	"github.com/ghalamif/AegisGate/internal/app/pipeline"
	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/ports"
)

// QueuedEvent is the owned event that crosses the forwarder boundary.
type QueuedEvent = domain.QueuedEvent

// EventKind distinguishes metrics from log events.
type EventKind = domain.EventKind

const (
	KindMetrics = domain.KindMetrics
	KindLog     = domain.KindLog
)

// SourceKey identifies a datagram sender by (ip, port).
type SourceKey = domain.SourceKey

// LogLevel is the ordered severity carried by log events.
type LogLevel = domain.LogLevel

const (
	LevelTrace = domain.LevelTrace
	LevelDebug = domain.LevelDebug
	LevelInfo  = domain.LevelInfo
	LevelWarn  = domain.LevelWarn
	LevelError = domain.LevelError
	LevelFatal = domain.LevelFatal
)

// Receiver is the datagram ingress transport port.
type Receiver = ports.Receiver

// RecvResult carries one receive attempt.
type RecvResult = ports.RecvResult

// RecvStatus is the outcome of one receive attempt.
type RecvStatus = ports.RecvStatus

const (
	RecvOK         = ports.RecvOK
	RecvTruncated  = ports.RecvTruncated
	RecvWouldBlock = ports.RecvWouldBlock
	RecvError      = ports.RecvError
)

// Sink consumes canonical event payloads downstream of the forwarder.
type Sink = ports.Sink

// Observability emits metrics and logs about pipeline outcomes.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Clock abstracts time for the limiter and validators.
type Clock = ports.Clock

// SystemClock reads the real time.
type SystemClock = ports.SystemClock

// PipelineStats are the driver's per-station counters.
type PipelineStats = pipeline.Stats
