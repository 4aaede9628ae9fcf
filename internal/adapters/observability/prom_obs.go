package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/AegisGate/internal/ports"
)

type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	drops    *prometheus.CounterVec
}

func NewPromObs() *PromObs {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_datagrams_received_total",
		Help: "Datagrams accepted by the receiver (within the size cap).",
	})
	forwarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_events_forwarded_total",
		Help: "Validated events delivered to the sink.",
	})
	sinkFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_sink_failures_total",
		Help: "Drained events the sink rejected; they are not retried.",
	})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_drops_total",
		Help: "Rejections by station and typed reason.",
	}, []string{"station", "reason"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_queue_depth",
		Help: "Events currently buffered in the forwarder queue.",
	})
	trackedAgents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_tracked_agents",
		Help: "Distinct agents with in-flight events.",
	})
	trackedSources := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_tracked_sources",
		Help: "Sources currently held by the limiter's LRU.",
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gate_sink_latency_seconds",
		Help:    "Latency of a single sink write during drain.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	prometheus.MustRegister(received, forwarded, sinkFailures, drops,
		queueDepth, trackedAgents, trackedSources, sinkLatency)

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{})

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"gate_datagrams_received_total": received,
			"gate_events_forwarded_total":   forwarded,
			"gate_sink_failures_total":      sinkFailures,
		},
		gauges: map[string]prometheus.Gauge{
			"gate_queue_depth":     queueDepth,
			"gate_tracked_agents":  trackedAgents,
			"gate_tracked_sources": trackedSources,
		},
		histos: map[string]prometheus.Observer{
			"gate_sink_latency_seconds": sinkLatency,
		},
		drops: drops,
	}
}

// SetLevel adjusts log verbosity; drop logging sits at Debug.
func (p *PromObs) SetLevel(level logrus.Level) { p.log.SetLevel(level) }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.WithFields(toLogrus(fields)).Info(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	entry := p.log.WithFields(toLogrus(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

// IncDrop records one typed rejection. Station and reason come from the drop
// taxonomy; payload bytes never reach a label or a log line.
func (p *PromObs) IncDrop(station, reason string) {
	p.drops.WithLabelValues(station, reason).Inc()
	p.log.WithFields(logrus.Fields{"station": station, "reason": reason}).Debug("drop")
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func toLogrus(fields []ports.Field) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
