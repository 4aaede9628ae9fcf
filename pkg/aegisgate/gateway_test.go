package aegisgate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ghalamif/AegisGate/internal/parse"
)

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)         {}
func (s *stubObservability) LogError(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)       {}
func (s *stubObservability) IncDrop(string, string)           {}
func (s *stubObservability) SetGauge(string, float64)         {}
func (s *stubObservability) ObserveLatency(string, float64)   {}

// scriptedReceiver replays a fixed set of datagrams, then reports WouldBlock.
type scriptedReceiver struct {
	results []RecvResult
	pos     int
	closed  bool
}

func (r *scriptedReceiver) ReceiveOne() RecvResult {
	if r.pos >= len(r.results) {
		return RecvResult{Status: RecvWouldBlock}
	}
	res := r.results[r.pos]
	r.pos++
	return res
}

func (r *scriptedReceiver) Close() error {
	r.closed = true
	return nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Metrics.Addr = "127.0.0.1:0"
	return cfg
}

func metricsDatagram(t *testing.T, agentID string, seq uint32) RecvResult {
	t.Helper()
	body := fmt.Sprintf(`{"agent_id":%q,"seq":%d,"ts":%d,"metrics":[{"n":"cpu","v":1}]}`,
		agentID, seq, time.Now().UnixMilli())
	framed, err := parse.Frame([]byte(body))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return RecvResult{Status: RecvOK, Data: framed, Source: SourceKey{IP: 1, Port: 1}}
}

func TestNewGatewayRuntimeWithCustomAdapters(t *testing.T) {
	recv := &scriptedReceiver{}
	snk := NewNullSink()
	obs := &stubObservability{}

	rt, err := NewGatewayRuntime(testConfig(),
		WithReceiver(recv),
		WithSink(snk),
		WithObservability(obs),
	)
	if err != nil {
		t.Fatalf("NewGatewayRuntime returned error: %v", err)
	}
	if rt.recv != recv {
		t.Fatalf("expected custom receiver to be used")
	}
	if rt.sink != snk {
		t.Fatalf("expected custom sink to be used")
	}
	if rt.obs != obs {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil when custom sink is provided")
	}
}

func TestNewGatewayRuntimeRejectsNilConfig(t *testing.T) {
	if _, err := NewGatewayRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestGatewayRuntimeDeliversAndShutsDown(t *testing.T) {
	recv := &scriptedReceiver{results: []RecvResult{
		metricsDatagram(t, "web-1", 1),
		metricsDatagram(t, "web-1", 2),
		metricsDatagram(t, "web-2", 1),
	}}
	snk, events, closeSink := NewChannelSink("events", 8)
	defer closeSink()

	rt, err := NewGatewayRuntime(testConfig(),
		WithReceiver(recv),
		WithSink(snk),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case payload := <-events:
			if len(payload) == 0 {
				t.Fatalf("empty payload delivered")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !recv.closed {
		t.Fatalf("shutdown must close the receiver")
	}

	stats := rt.Stats()
	if stats.Received != 3 || stats.Queued != 3 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestGatewayRuntimeRunHonorsContext(t *testing.T) {
	rt, err := NewGatewayRuntime(testConfig(),
		WithReceiver(&scriptedReceiver{}),
		WithSink(NewNullSink()),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}
