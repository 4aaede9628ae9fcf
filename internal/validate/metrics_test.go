package validate

import (
	"math"
	"strings"
	"testing"

	"github.com/ghalamif/AegisGate/internal/parse"
)

const nowMS = uint64(1_705_689_600_000)

func metricsRecord(agentID string, ts uint64, values ...float64) *parse.ParsedMetrics {
	rec := &parse.ParsedMetrics{
		AgentID: []byte(agentID),
		Seq:     1,
		TS:      ts,
	}
	for _, v := range values {
		rec.Metrics = append(rec.Metrics, parse.Metric{Name: []byte("m"), Value: v})
	}
	return rec
}

func wantMetricsValDrop(t *testing.T, rec *parse.ParsedMetrics, cfg MetricsConfig, want MetricsDrop) {
	t.Helper()
	_, drop, ok := Metrics(rec, cfg, nowMS)
	if ok {
		t.Fatalf("expected drop %s, got success", want)
	}
	if drop != want {
		t.Fatalf("expected drop %s, got %s", want, drop)
	}
}

func TestValidateMetricsHappyPath(t *testing.T) {
	rec := metricsRecord("web-1", nowMS, 75.5)

	v, drop, ok := Metrics(rec, DefaultMetricsConfig(), nowMS)
	if !ok {
		t.Fatalf("unexpected drop %s", drop)
	}
	if string(v.AgentID) != "web-1" || v.Seq != 1 || v.TS != nowMS {
		t.Fatalf("scalars not passed through: %+v", v)
	}
	if len(v.Metrics) != 1 || v.Metrics[0].Value != 75.5 {
		t.Fatalf("metrics not passed through: %+v", v.Metrics)
	}
}

func TestValidateMetricsAgentID(t *testing.T) {
	cfg := DefaultMetricsConfig()

	wantMetricsValDrop(t, metricsRecord("", nowMS), cfg, MetricsDropAgentIDEmpty)
	wantMetricsValDrop(t, metricsRecord(strings.Repeat("a", 65), nowMS), cfg, MetricsDropAgentIDTooLong)

	// Stricter than the parse-stage check: no leading digit, no dots.
	wantMetricsValDrop(t, metricsRecord("1abc", nowMS), cfg, MetricsDropAgentIDInvalidFormat)
	wantMetricsValDrop(t, metricsRecord("web.1", nowMS), cfg, MetricsDropAgentIDInvalidFormat)
	wantMetricsValDrop(t, metricsRecord("-abc", nowMS), cfg, MetricsDropAgentIDInvalidFormat)

	for _, id := range []string{"a", "Z9", "web-1", "agent_007", strings.Repeat("a", 64)} {
		if _, drop, ok := Metrics(metricsRecord(id, nowMS), cfg, nowMS); !ok {
			t.Fatalf("%q: unexpected drop %s", id, drop)
		}
	}
}

func TestValidateMetricsTimestampWindow(t *testing.T) {
	cfg := DefaultMetricsConfig()

	// Boundaries are inclusive.
	if _, drop, ok := Metrics(metricsRecord("a", nowMS-300_000), cfg, nowMS); !ok {
		t.Fatalf("boundary max_age: unexpected drop %s", drop)
	}
	wantMetricsValDrop(t, metricsRecord("a", nowMS-300_001), cfg, MetricsDropTimestampTooOld)

	if _, drop, ok := Metrics(metricsRecord("a", nowMS+60_000), cfg, nowMS); !ok {
		t.Fatalf("boundary max_future: unexpected drop %s", drop)
	}
	wantMetricsValDrop(t, metricsRecord("a", nowMS+60_001), cfg, MetricsDropTimestampInFuture)
}

func TestValidateMetricsTimestampMissing(t *testing.T) {
	cfg := DefaultMetricsConfig()
	wantMetricsValDrop(t, metricsRecord("a", 0), cfg, MetricsDropTimestampMissing)

	cfg.RequireTimestamp = false
	if _, drop, ok := Metrics(metricsRecord("a", 0), cfg, nowMS); !ok {
		t.Fatalf("optional ts: unexpected drop %s", drop)
	}
}

func TestValidateMetricsWindowUnderflowClamps(t *testing.T) {
	// now earlier than max_age: the lower bound clamps to zero instead of
	// wrapping around.
	early := uint64(1000)
	if _, drop, ok := Metrics(metricsRecord("a", 1), DefaultMetricsConfig(), early); !ok {
		t.Fatalf("unexpected drop %s", drop)
	}
}

func TestValidateMetricsValues(t *testing.T) {
	cfg := DefaultMetricsConfig()

	wantMetricsValDrop(t, metricsRecord("a", nowMS, math.NaN()), cfg, MetricsDropValueNaN)
	wantMetricsValDrop(t, metricsRecord("a", nowMS, math.Inf(1)), cfg, MetricsDropValueInfinity)
	wantMetricsValDrop(t, metricsRecord("a", nowMS, math.Inf(-1)), cfg, MetricsDropValueInfinity)
	wantMetricsValDrop(t, metricsRecord("a", nowMS, -1e15-1e3), cfg, MetricsDropValueTooLow)
	wantMetricsValDrop(t, metricsRecord("a", nowMS, 1e15+1e3), cfg, MetricsDropValueTooHigh)

	// Range boundaries are inclusive.
	if _, drop, ok := Metrics(metricsRecord("a", nowMS, -1e15, 1e15), cfg, nowMS); !ok {
		t.Fatalf("boundary values: unexpected drop %s", drop)
	}

	// Second metric carries the violation.
	wantMetricsValDrop(t, metricsRecord("a", nowMS, 1, math.NaN()), cfg, MetricsDropValueNaN)
}

func TestValidateMetricsNonFiniteAllowedWhenConfigured(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.RejectNaN = false
	cfg.RejectInfinity = false

	if _, drop, ok := Metrics(metricsRecord("a", nowMS, math.NaN()), cfg, nowMS); !ok {
		t.Fatalf("NaN allowed: unexpected drop %s", drop)
	}
	if _, drop, ok := Metrics(metricsRecord("a", nowMS, math.Inf(1)), cfg, nowMS); !ok {
		t.Fatalf("Inf allowed: unexpected drop %s", drop)
	}
}

func TestValidateMetricsNameEmpty(t *testing.T) {
	rec := metricsRecord("a", nowMS)
	rec.Metrics = append(rec.Metrics, parse.Metric{Name: nil, Value: 1})
	wantMetricsValDrop(t, rec, DefaultMetricsConfig(), MetricsDropNameEmpty)
}
