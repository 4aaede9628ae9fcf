// Basic example: run the gateway with defaults and push a few events at it
// from an in-process emitter.
package main

import (
	"context"
	"log"
	"time"

	"github.com/ghalamif/AegisGate"
)

func main() {
	cfg := aegisgate.DefaultConfig()
	cfg.Bind = "127.0.0.1:9999"
	cfg.Metrics.Addr = ":9100"

	rt, err := aegisgate.NewGatewayRuntime(cfg)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	em, err := aegisgate.NewEmitter("127.0.0.1:9999")
	if err != nil {
		log.Fatalf("emitter: %v", err)
	}
	defer em.Close()

	now := uint64(time.Now().UnixMilli())
	for seq := uint32(1); seq <= 10; seq++ {
		if err := em.SendMetrics("web-1", seq, now, []aegisgate.EmitMetric{
			{Name: "cpu_percent", Value: 42.5, Unit: "percent"},
			{Name: "rps", Value: 1.2e3, Tags: map[string]string{"env": "prod"}},
		}); err != nil {
			log.Printf("send: %v", err)
		}
	}
	if err := em.SendLog("web-1", now, aegisgate.LevelError, "Connection refused", map[string]string{"request_id": "req-9"}); err != nil {
		log.Printf("send log: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Printf("done: %+v", rt.Stats())
}
