// Callback example: route canonical payloads into an arbitrary function.
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

	flow, err := aegisgate.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("flow: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = flow.Run(ctx, aegisgate.StreamOutCallback("printer", func(payload []byte) error {
		log.Printf("event: %s", payload)
		return nil
	}))
	if err != nil {
		log.Fatalf("run: %v", err)
	}
}
