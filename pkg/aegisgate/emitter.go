package aegisgate

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/ghalamif/AegisGate/internal/parse"
)

// Emitter is the agent-side counterpart of the gateway: it frames bodies
// with the 2-byte big-endian length header and sends them as single
// datagrams. Useful for demos, integration tests, and traffic generation.
type Emitter struct {
	conn net.Conn
}

// NewEmitter dials the gateway's UDP address.
func NewEmitter(addr string) (*Emitter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Emitter{conn: conn}, nil
}

// SendBody frames body and sends it as one datagram.
func (e *Emitter) SendBody(body []byte) error {
	datagram, err := parse.Frame(body)
	if err != nil {
		return err
	}
	_, err = e.conn.Write(datagram)
	return err
}

// SendRaw sends bytes without framing, for exercising the envelope drops.
func (e *Emitter) SendRaw(datagram []byte) error {
	_, err := e.conn.Write(datagram)
	return err
}

// EmitMetric is one metric entry of a metrics body.
type EmitMetric struct {
	Name  string            `json:"n"`
	Value float64           `json:"v"`
	Unit  string            `json:"u,omitempty"`
	Tags  map[string]string `json:"t,omitempty"`
}

type emitMetricsBody struct {
	AgentID string       `json:"agent_id"`
	Seq     uint32       `json:"seq"`
	TS      uint64       `json:"ts,omitempty"`
	Metrics []EmitMetric `json:"metrics"`
}

// SendMetrics builds a schema-conformant metrics body and sends it framed.
func (e *Emitter) SendMetrics(agentID string, seq uint32, ts uint64, metrics []EmitMetric) error {
	if metrics == nil {
		metrics = []EmitMetric{}
	}
	body, err := json.Marshal(emitMetricsBody{
		AgentID: agentID,
		Seq:     seq,
		TS:      ts,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}
	return e.SendBody(body)
}

// SendLog builds a logfmt body and sends it framed. Values containing
// whitespace are quoted; the logfmt grammar has no escapes, so values must
// not contain double quotes.
func (e *Emitter) SendLog(agentID string, ts uint64, level LogLevel, msg string, extra map[string]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ts=%d level=%s", ts, level)
	if agentID != "" {
		fmt.Fprintf(&b, " agent=%s", agentID)
	}
	fmt.Fprintf(&b, " msg=%s", logfmtValue(msg))
	for k, v := range extra {
		fmt.Fprintf(&b, " %s=%s", k, logfmtValue(v))
	}
	return e.SendBody([]byte(b.String()))
}

func (e *Emitter) Close() error { return e.conn.Close() }

func logfmtValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t=") {
		return `"` + v + `"`
	}
	return v
}
