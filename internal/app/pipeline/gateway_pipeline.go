package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/forward"
	"github.com/ghalamif/AegisGate/internal/limiter"
	"github.com/ghalamif/AegisGate/internal/parse"
	"github.com/ghalamif/AegisGate/internal/ports"
	"github.com/ghalamif/AegisGate/internal/validate"
)

// Gateway is the single-threaded cooperative driver: one loop alternating a
// receive attempt (receive → admit → frame → parse → validate → forward) with
// one drain attempt. No state persists between datagrams except the limiter
// buckets, the forwarder queue, and the quota map.
//
// Not thread-safe. Parallel deployments run one Gateway per worker,
// share-nothing.
type Gateway struct {
	recv          ports.Receiver
	limiter       *limiter.SourceLimiter
	fwd           *forward.BoundedForwarder
	metricsParser *parse.MetricsParser
	logParser     *parse.LogParser
	metricsRules  validate.MetricsConfig
	logRules      validate.LogConfig
	clock         ports.Clock
	obs           ports.Observability

	idleSleep     time.Duration
	gaugeInterval time.Duration

	stats Stats
}

// Stats are the driver's own counters, one per station outcome.
type Stats struct {
	Received        uint64
	Truncated       uint64
	RecvErrors      uint64
	SourceLimited   uint64
	EnvelopeDrops   uint64
	ParseDrops      uint64
	ValidationDrops uint64
	Queued          uint64
	QueueDrops      uint64
	QuotaDrops      uint64
}

// Deps wires the stations together. Receiver, Limiter, and Forwarder are
// required. Parsers, Clock, Obs, IdleSleep, and GaugeInterval default when
// unset; MetricsRules and LogRules are used exactly as given.
type Deps struct {
	Receiver      ports.Receiver
	Limiter       *limiter.SourceLimiter
	Forwarder     *forward.BoundedForwarder
	MetricsParser *parse.MetricsParser
	LogParser     *parse.LogParser
	MetricsRules  validate.MetricsConfig
	LogRules      validate.LogConfig
	Clock         ports.Clock
	Obs           ports.Observability
	IdleSleep     time.Duration
	GaugeInterval time.Duration
}

func New(d Deps) (*Gateway, error) {
	if d.Receiver == nil {
		return nil, fmt.Errorf("pipeline: receiver is required")
	}
	if d.Limiter == nil {
		return nil, fmt.Errorf("pipeline: source limiter is required")
	}
	if d.Forwarder == nil {
		return nil, fmt.Errorf("pipeline: forwarder is required")
	}
	if d.MetricsParser == nil {
		d.MetricsParser = parse.NewMetricsParser(parse.DefaultMetricsLimits())
	}
	if d.LogParser == nil {
		d.LogParser = parse.NewLogParser(parse.DefaultLogLimits())
	}
	if d.Clock == nil {
		d.Clock = ports.SystemClock{}
	}
	if d.Obs == nil {
		d.Obs = nopObs{}
	}
	if d.IdleSleep <= 0 {
		d.IdleSleep = time.Millisecond
	}
	if d.GaugeInterval <= 0 {
		d.GaugeInterval = time.Second
	}

	return &Gateway{
		recv:          d.Receiver,
		limiter:       d.Limiter,
		fwd:           d.Forwarder,
		metricsParser: d.MetricsParser,
		logParser:     d.LogParser,
		metricsRules:  d.MetricsRules,
		logRules:      d.LogRules,
		clock:         d.Clock,
		obs:           d.Obs,
		idleSleep:     d.IdleSleep,
		gaugeInterval: d.GaugeInterval,
	}, nil
}

// Run drives the pipeline until ctx is cancelled, then stops receiving,
// drains the remaining queued events, and returns.
func (g *Gateway) Run(ctx context.Context) error {
	lastGauges := g.clock.Now()

	for {
		select {
		case <-ctx.Done():
			g.fwd.DrainAll()
			g.publishGauges()
			return nil
		default:
		}

		progressed := g.ProcessOne()
		drained := g.DrainOne()

		if now := g.clock.Now(); now.Sub(lastGauges) >= g.gaugeInterval {
			g.publishGauges()
			lastGauges = now
		}

		if !progressed && !drained {
			time.Sleep(g.idleSleep)
		}
	}
}

// ProcessOne performs one receive attempt and pushes the datagram through the
// stations. It returns false only when no datagram was available.
func (g *Gateway) ProcessOne() bool {
	res := g.recv.ReceiveOne()

	switch res.Status {
	case ports.RecvWouldBlock:
		return false
	case ports.RecvError:
		g.stats.RecvErrors++
		g.obs.IncDrop("receiver", "error")
		g.obs.LogError("recv_error", res.Err)
		return true
	case ports.RecvTruncated:
		g.stats.Truncated++
		g.obs.IncDrop("receiver", "truncated")
		return true
	}

	g.stats.Received++
	g.obs.IncCounter("gate_datagrams_received_total", 1)
	g.processDatagram(res.Data, res.Source)
	return true
}

// processDatagram owns res.Data for exactly one pass; nothing that survives
// the pass may alias it.
func (g *Gateway) processDatagram(data []byte, source domain.SourceKey) {
	if g.limiter.Admit(source) == limiter.Drop {
		g.stats.SourceLimited++
		g.obs.IncDrop("limiter", "rate_limited")
		return
	}

	body, envDrop, ok := parse.ParseEnvelope(data)
	if !ok {
		g.stats.EnvelopeDrops++
		g.obs.IncDrop("envelope", envDrop.String())
		return
	}

	nowMS := uint64(g.clock.Now().UnixMilli())

	// Closed dispatch: a body starting with '{' is metrics or nothing; any
	// other body is tried as logfmt and fails there on its own terms.
	if len(body) > 0 && body[0] == '{' {
		g.processMetrics(body, nowMS)
		return
	}
	g.processLog(body, nowMS)
}

func (g *Gateway) processMetrics(body []byte, nowMS uint64) {
	parsed, parseDrop, ok := g.metricsParser.Parse(body)
	if !ok {
		g.stats.ParseDrops++
		g.obs.IncDrop("metrics_parse", parseDrop.String())
		return
	}

	validated, valDrop, ok := validate.Metrics(parsed, g.metricsRules, nowMS)
	if !ok {
		g.stats.ValidationDrops++
		g.obs.IncDrop("metrics_validate", valDrop.String())
		return
	}

	payload, err := serializeMetrics(&validated)
	if err != nil {
		g.obs.LogError("serialize_metrics_failed", err)
		return
	}

	g.tryForward(domain.QueuedEvent{
		AgentID: string(validated.AgentID),
		Kind:    domain.KindMetrics,
		Payload: payload,
	})
}

func (g *Gateway) processLog(body []byte, nowMS uint64) {
	parsed, parseDrop, ok := g.logParser.Parse(body)
	if !ok {
		g.stats.ParseDrops++
		g.obs.IncDrop("log_parse", parseDrop.String())
		return
	}

	validated, valDrop, ok := validate.Log(parsed, g.logRules, nowMS)
	if !ok {
		g.stats.ValidationDrops++
		g.obs.IncDrop("log_validate", valDrop.String())
		return
	}

	payload, err := serializeLog(&validated)
	if err != nil {
		g.obs.LogError("serialize_log_failed", err)
		return
	}

	g.tryForward(domain.QueuedEvent{
		AgentID: string(validated.AgentID),
		Kind:    domain.KindLog,
		Payload: payload,
	})
}

func (g *Gateway) tryForward(ev domain.QueuedEvent) {
	switch g.fwd.TryForward(ev) {
	case forward.Queued:
		g.stats.Queued++
	case forward.DroppedQueueFull:
		g.stats.QueueDrops++
		g.obs.IncDrop("forward", "queue_full")
	case forward.DroppedAgentQuotaExceeded:
		g.stats.QuotaDrops++
		g.obs.IncDrop("forward", "agent_quota_exceeded")
	}
}

// DrainOne hands one queued event to the sink. Returns false when the queue
// was empty.
func (g *Gateway) DrainOne() bool {
	failuresBefore := g.fwd.TotalSinkFailures()

	start := g.clock.Now()
	if !g.fwd.DrainOne() {
		return false
	}
	g.obs.ObserveLatency("gate_sink_latency_seconds", g.clock.Now().Sub(start).Seconds())

	if g.fwd.TotalSinkFailures() > failuresBefore {
		g.obs.IncCounter("gate_sink_failures_total", 1)
		g.obs.IncDrop("forward", "sink_failed")
	} else {
		g.obs.IncCounter("gate_events_forwarded_total", 1)
	}
	return true
}

func (g *Gateway) publishGauges() {
	g.obs.SetGauge("gate_queue_depth", float64(g.fwd.QueueDepth()))
	g.obs.SetGauge("gate_tracked_agents", float64(g.fwd.Quota().TrackedAgents()))
	g.obs.SetGauge("gate_tracked_sources", float64(g.limiter.Tracked()))
}

func (g *Gateway) Stats() Stats { return g.stats }

func (g *Gateway) Forwarder() *forward.BoundedForwarder { return g.fwd }

func (g *Gateway) Limiter() *limiter.SourceLimiter { return g.limiter }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) IncDrop(string, string)                 {}
func (nopObs) SetGauge(string, float64)               {}
func (nopObs) ObserveLatency(string, float64)         {}
