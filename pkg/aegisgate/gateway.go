package aegisgate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/AegisGate/internal/adapters/observability"
	sinkadapter "github.com/ghalamif/AegisGate/internal/adapters/sink"
	"github.com/ghalamif/AegisGate/internal/adapters/udp"
	"github.com/ghalamif/AegisGate/internal/app/pipeline"
	"github.com/ghalamif/AegisGate/internal/forward"
	"github.com/ghalamif/AegisGate/internal/limiter"
	"github.com/ghalamif/AegisGate/internal/parse"
)

// GatewayRuntimeOption customizes the dependencies used by GatewayRuntime.
type GatewayRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	receiver      Receiver
	sink          Sink
	observability Observability
	clock         Clock
}

// WithReceiver injects a custom ingress transport (in-memory feeds, replay
// captures, alternative sockets).
func WithReceiver(r Receiver) GatewayRuntimeOption {
	return func(o *runtimeOverrides) {
		o.receiver = r
	}
}

// WithSink injects a custom sink so events can be sent to any downstream.
func WithSink(s Sink) GatewayRuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) GatewayRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithClock injects a controllable clock, mainly for tests.
func WithClock(c Clock) GatewayRuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = c
	}
}

// GatewayRuntime wires up the receive → admit → parse → validate → forward
// pipeline and exposes simple lifecycle hooks for embedding AegisGate inside
// any Go service.
type GatewayRuntime struct {
	cfg        *Config
	obs        Observability
	recv       Receiver
	sink       Sink
	pipe       *pipeline.Gateway
	db         *sql.DB
	metricsSrv *http.Server

	runCancel context.CancelFunc
	doneCh    chan struct{}
}

// NewGatewayRuntime bootstraps the default adapters (UDP receiver, stdout
// sink, Prometheus observability). Callers can use GatewayRuntimeOption
// values to override any dependency.
func NewGatewayRuntime(cfg *Config, opts ...GatewayRuntimeOption) (*GatewayRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		promObs := observability.NewPromObs()
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			promObs.SetLevel(level)
		}
		obs = promObs
	}

	recv := overrides.receiver
	if recv == nil {
		var err error
		recv, err = udp.Listen(cfg.Bind, udp.Config{
			MaxDatagramBytes: cfg.Receiver.MaxDatagramBytes,
			RecvBufferBytes:  cfg.Receiver.RecvBufferBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", cfg.Bind, err)
		}
	}

	var (
		db  *sql.DB
		snk Sink
		err error
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else {
		db, snk, err = buildSink(cfg)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Sink.SlowMS > 0 {
		snk = NewSlowSink(snk, time.Duration(cfg.Sink.SlowMS)*time.Millisecond)
	}

	lim, err := limiter.New(cfg.LimiterConfig(), overrides.clock)
	if err != nil {
		return nil, err
	}
	fwd := forward.NewBoundedForwarder(cfg.ForwarderConfig(), snk)

	pipe, err := pipeline.New(pipeline.Deps{
		Receiver:      recv,
		Limiter:       lim,
		Forwarder:     fwd,
		MetricsParser: parse.NewMetricsParser(cfg.MetricsLimits()),
		LogParser:     parse.NewLogParser(cfg.LogLimits()),
		MetricsRules:  cfg.MetricsRules(),
		LogRules:      cfg.LogRules(),
		Clock:         overrides.clock,
		Obs:           obs,
	})
	if err != nil {
		return nil, err
	}

	return &GatewayRuntime{
		cfg:  cfg,
		obs:  obs,
		recv: recv,
		sink: snk,
		pipe: pipe,
		db:   db,
	}, nil
}

func buildSink(cfg *Config) (*sql.DB, Sink, error) {
	switch cfg.Sink.Type {
	case "null":
		return nil, NewNullSink(), nil
	case "stdout":
		return nil, NewWriterSink("stdout", os.Stdout), nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Sink.ConnString)
		if err != nil {
			return nil, nil, err
		}
		return db, sinkadapter.NewPostgresSink(db, cfg.Sink.Table), nil
	}
	return nil, nil, fmt.Errorf("sink type %q is not recognized", cfg.Sink.Type)
}

// Start launches the pipeline loop and the metrics server, returning
// immediately. Call Run to block on a context instead.
func (g *GatewayRuntime) Start() error {
	if g == nil {
		return fmt.Errorf("gateway runtime is nil")
	}
	if g.doneCh != nil {
		return fmt.Errorf("gateway runtime already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.runCancel = cancel
	g.doneCh = make(chan struct{})

	go func() {
		defer close(g.doneCh)
		_ = g.pipe.Run(runCtx)
	}()

	g.startMetrics()
	g.obs.LogInfo("gateway_started", Field{Key: "bind", Value: g.cfg.Bind})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown, draining queued events.
func (g *GatewayRuntime) Run(ctx context.Context) error {
	if err := g.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(shutdownCtx)
}

// Shutdown stops receiving, waits for the drain to finish, and closes the
// transport, metrics server, and DB connection.
func (g *GatewayRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if g.runCancel != nil {
		g.runCancel()
	}
	if g.doneCh != nil {
		select {
		case <-g.doneCh:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if g.metricsSrv != nil {
		if err := g.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if g.recv != nil {
		if err := g.recv.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if g.sink != nil {
		g.sink.Flush()
	}

	if g.db != nil {
		if err := g.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Stats returns a snapshot of the driver's per-station counters. Only safe
// to read after Shutdown; the pipeline owns its counters while running.
func (g *GatewayRuntime) Stats() PipelineStats { return g.pipe.Stats() }

func (g *GatewayRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	g.metricsSrv = &http.Server{
		Addr:    g.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := g.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.obs.LogError("metrics_server_exited", err)
		}
	}()
}
