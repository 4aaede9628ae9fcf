package pipeline

import (
	"encoding/json"

	"github.com/ghalamif/AegisGate/internal/validate"
)

// Canonical forwarded payload. Downstream treats it as opaque JSON; the only
// guarantees are that agent_id, the event kind, and the normalized fields are
// present, that no attacker-controlled substring can escape the framing
// (encoding/json escapes everything), and that length stays bounded by the
// parser limits.

type canonicalMetric struct {
	Name  string            `json:"n"`
	Value float64           `json:"v"`
	Unit  string            `json:"u,omitempty"`
	Tags  map[string]string `json:"t,omitempty"`
}

type canonicalMetricsEvent struct {
	Type    string            `json:"type"`
	AgentID string            `json:"agent_id"`
	Seq     uint32            `json:"seq"`
	TS      uint64            `json:"ts"`
	Metrics []canonicalMetric `json:"metrics"`
}

type canonicalLogEvent struct {
	Type    string            `json:"type"`
	AgentID string            `json:"agent_id,omitempty"`
	TS      uint64            `json:"ts"`
	Level   string            `json:"level"`
	Msg     string            `json:"msg"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// serializeMetrics copies the validated views into an owned payload. This is
// the mandatory ownership transfer before forwarding: the datagram buffer is
// released when the pass returns.
func serializeMetrics(v *validate.ValidatedMetrics) ([]byte, error) {
	ev := canonicalMetricsEvent{
		Type:    "metrics",
		AgentID: string(v.AgentID),
		Seq:     v.Seq,
		TS:      v.TS,
		Metrics: make([]canonicalMetric, len(v.Metrics)),
	}
	for i := range v.Metrics {
		m := &v.Metrics[i]
		cm := canonicalMetric{
			Name:  string(m.Name),
			Value: m.Value,
			Unit:  string(m.Unit),
		}
		if len(m.Tags) > 0 {
			cm.Tags = make(map[string]string, len(m.Tags))
			for _, t := range m.Tags {
				cm.Tags[string(t.Key)] = string(t.Value)
			}
		}
		ev.Metrics[i] = cm
	}
	return json.Marshal(ev)
}

func serializeLog(v *validate.ValidatedLog) ([]byte, error) {
	ev := canonicalLogEvent{
		Type:    "log",
		AgentID: string(v.AgentID),
		TS:      v.TS,
		Level:   v.Level.String(),
		Msg:     string(v.Msg),
	}
	for _, f := range v.Fields {
		switch string(f.Key) {
		case "ts", "level", "msg", "agent":
			// already normalized above
		default:
			if ev.Fields == nil {
				ev.Fields = make(map[string]string, len(v.Fields))
			}
			ev.Fields[string(f.Key)] = string(f.Value)
		}
	}
	return json.Marshal(ev)
}
