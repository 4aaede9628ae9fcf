// Channel example: consume canonical payloads from a Go channel.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/AegisGate"
)

func main() {
	cfg := aegisgate.DefaultConfig()
	cfg.Bind = "127.0.0.1:9999"

	sink, events, closeSink := aegisgate.NewChannelSink("events", 128)
	defer closeSink()

	go func() {
		for payload := range events {
			log.Printf("event: %s", payload)
		}
	}()

	rt, err := aegisgate.NewGatewayRuntime(cfg, aegisgate.WithSink(sink))
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
