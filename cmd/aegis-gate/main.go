package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/AegisGate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("aegis-gate %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to gateway configuration file (defaults apply when empty)")
	bind := fs.String("bind", "", "Override the UDP bind address, e.g. :9999")
	slow := fs.Bool("slow", false, "Wrap the sink with a 100ms delay per write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *aegisgate.Config
		err error
	)
	if *cfgPath != "" {
		cfg, err = aegisgate.LoadConfig(*cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = aegisgate.DefaultConfig()
	}
	if *bind != "" {
		cfg.Bind = *bind
	}
	if *slow {
		cfg.Sink.SlowMS = 100
	}

	rt, err := aegisgate.NewGatewayRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := aegisgate.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"gate_datagrams_received_total": 0,
		"gate_events_forwarded_total":   0,
		"gate_queue_depth":              0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] received=%f forwarded=%f queue=%f\n",
		time.Now().Format(time.RFC3339),
		targets["gate_datagrams_received_total"],
		targets["gate_events_forwarded_total"],
		targets["gate_queue_depth"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`AegisGate CLI

Usage:
  aegis-gate <command> [flags]

Commands:
  run        Start the gateway using the provided config (default)
  validate   Load and validate a config file without starting the gateway
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  aegis-gate run -config ./data/config.yaml
  aegis-gate run -bind :9999 -slow
  aegis-gate validate -config ./data/config.yaml
  aegis-gate stats -url http://localhost:9100/metrics -interval 1s
`)
}
