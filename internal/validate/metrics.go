package validate

import (
	"math"

	"github.com/ghalamif/AegisGate/internal/parse"
)

// MetricsConfig holds the semantic rules for metrics events.
type MetricsConfig struct {
	Window           TimestampWindow
	MinValue         float64
	MaxValue         float64
	RejectNaN        bool
	RejectInfinity   bool
	RequireTimestamp bool // when set, ts=0 is rejected
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Window:           DefaultTimestampWindow(),
		MinValue:         -1e15,
		MaxValue:         1e15,
		RejectNaN:        true,
		RejectInfinity:   true,
		RequireTimestamp: true,
	}
}

// MetricsDrop enumerates semantic rejections of parsed metrics. These are
// distinct from the parse-stage reasons: parsing checked shape, this stage
// checks meaning.
type MetricsDrop uint8

const (
	MetricsDropTimestampMissing MetricsDrop = iota
	MetricsDropTimestampTooOld
	MetricsDropTimestampInFuture
	MetricsDropAgentIDEmpty
	MetricsDropAgentIDTooLong
	MetricsDropAgentIDInvalidFormat
	MetricsDropValueNaN
	MetricsDropValueInfinity
	MetricsDropValueTooLow
	MetricsDropValueTooHigh
	MetricsDropNameEmpty
)

func (d MetricsDrop) String() string {
	switch d {
	case MetricsDropTimestampMissing:
		return "timestamp_missing"
	case MetricsDropTimestampTooOld:
		return "timestamp_too_old"
	case MetricsDropTimestampInFuture:
		return "timestamp_in_future"
	case MetricsDropAgentIDEmpty:
		return "agent_id_empty"
	case MetricsDropAgentIDTooLong:
		return "agent_id_too_long"
	case MetricsDropAgentIDInvalidFormat:
		return "agent_id_invalid_format"
	case MetricsDropValueNaN:
		return "metric_value_nan"
	case MetricsDropValueInfinity:
		return "metric_value_infinity"
	case MetricsDropValueTooLow:
		return "metric_value_too_low"
	case MetricsDropValueTooHigh:
		return "metric_value_too_high"
	case MetricsDropNameEmpty:
		return "metric_name_empty"
	}
	return "unknown"
}

// ValidatedMetrics carries the post-validation contract: agent_id matches the
// pattern, the timestamp is in window, every value is finite and in range.
// String fields remain views into the parse record.
type ValidatedMetrics struct {
	AgentID []byte
	Seq     uint32
	TS      uint64
	Metrics []parse.Metric
}

// Metrics applies the semantic rules to a parsed record. O(len(Metrics)),
// no allocation.
func Metrics(p *parse.ParsedMetrics, cfg MetricsConfig, nowMS uint64) (ValidatedMetrics, MetricsDrop, bool) {
	if len(p.AgentID) == 0 {
		return ValidatedMetrics{}, MetricsDropAgentIDEmpty, false
	}
	// Length is enforced at parse time too; checked again as defense in depth.
	if len(p.AgentID) > agentIDMaxLen {
		return ValidatedMetrics{}, MetricsDropAgentIDTooLong, false
	}
	if !ValidAgentID(p.AgentID) {
		return ValidatedMetrics{}, MetricsDropAgentIDInvalidFormat, false
	}

	if cfg.RequireTimestamp && p.TS == 0 {
		return ValidatedMetrics{}, MetricsDropTimestampMissing, false
	}
	if p.TS != 0 && !inWindow(p.TS, nowMS, cfg.Window) {
		var minAllowed uint64
		if nowMS > uint64(cfg.Window.MaxAgeMS) {
			minAllowed = nowMS - uint64(cfg.Window.MaxAgeMS)
		}
		if p.TS < minAllowed {
			return ValidatedMetrics{}, MetricsDropTimestampTooOld, false
		}
		return ValidatedMetrics{}, MetricsDropTimestampInFuture, false
	}

	for i := range p.Metrics {
		m := &p.Metrics[i]

		if len(m.Name) == 0 {
			return ValidatedMetrics{}, MetricsDropNameEmpty, false
		}
		if cfg.RejectNaN && math.IsNaN(m.Value) {
			return ValidatedMetrics{}, MetricsDropValueNaN, false
		}
		if cfg.RejectInfinity && math.IsInf(m.Value, 0) {
			return ValidatedMetrics{}, MetricsDropValueInfinity, false
		}
		if !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0) {
			if m.Value < cfg.MinValue {
				return ValidatedMetrics{}, MetricsDropValueTooLow, false
			}
			if m.Value > cfg.MaxValue {
				return ValidatedMetrics{}, MetricsDropValueTooHigh, false
			}
		}
	}

	return ValidatedMetrics{
		AgentID: p.AgentID,
		Seq:     p.Seq,
		TS:      p.TS,
		Metrics: p.Metrics,
	}, 0, true
}
