package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nedzof/lockd.app-sub000/component"
	"github.com/nedzof/lockd.app-sub000/config"
	"github.com/nedzof/lockd.app-sub000/errors"
	"github.com/nedzof/lockd.app-sub000/input/feed"
	"github.com/nedzof/lockd.app-sub000/lockproto"
	"github.com/nedzof/lockd.app-sub000/metric"
	"github.com/nedzof/lockd.app-sub000/natsclient"
	"github.com/nedzof/lockd.app-sub000/persist"
	"github.com/nedzof/lockd.app-sub000/persist/postgres"
	"github.com/nedzof/lockd.app-sub000/pkg/dedup"
	"github.com/nedzof/lockd.app-sub000/processor/txingest"
)

const shutdownTimeout = 15 * time.Second

// Engine owns the daemon's components and their lifecycle
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	nats     *natsclient.Client
	gateway  persist.Gateway
	feed     *feed.Input
	ingester *txingest.Processor

	httpServer *http.Server

	// started components in start order, stopped in reverse
	components []component.Lifecycle

	// gatewayOverride lets tests run without Postgres
	gatewayOverride persist.Gateway
}

// Option customizes engine construction
type Option func(*Engine)

// WithGateway substitutes the persistence gateway (used by tests)
func WithGateway(g persist.Gateway) Option {
	return func(e *Engine) {
		e.gatewayOverride = g
	}
}

// New creates an engine for the given configuration. Construction is cheap;
// connections happen in Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "engine", "New", "validate config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run brings the daemon up and blocks until ctx is cancelled or a component
// fails fatally. Shutdown runs in reverse start order.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.setup(ctx); err != nil {
		e.teardown()
		return err
	}
	defer e.teardown()

	for _, c := range e.components {
		if err := c.Start(ctx); err != nil {
			e.stopComponents()
			return errors.Wrap(err, "engine", "Run", "start "+c.Meta().Name)
		}
		e.logger.Info("component started", "component", c.Meta().Name)
	}
	defer e.stopComponents()

	e.startHTTP()

	select {
	case <-ctx.Done():
		e.logger.Info("shutdown requested")
		return nil
	case err := <-e.feed.Fatal():
		return err
	}
}

// setup builds and connects the infrastructure dependencies
func (e *Engine) setup(ctx context.Context) error {
	nc, err := natsclient.NewClient(e.cfg.NATS.URL,
		natsclient.WithClientName("lockd-ingest"),
		natsclient.WithLogger(natsclient.NewSlogLogger(
			e.logger.With("component", "natsclient"))),
	)
	if err != nil {
		return errors.WrapFatal(err, "engine", "setup", "create nats client")
	}
	e.nats = nc

	if err := nc.Connect(ctx); err != nil {
		return errors.WrapTransient(err, "engine", "setup", "connect to nats")
	}
	if err := nc.EnsureStream(ctx, e.cfg.NATS.Stream, []string{e.cfg.NATS.RawSubject}); err != nil {
		return errors.Wrap(err, "engine", "setup", "ensure stream")
	}

	if e.gatewayOverride != nil {
		e.gateway = e.gatewayOverride
	} else {
		gw, err := postgres.New(ctx, e.cfg.Database.URL,
			e.logger.With("component", "postgres"))
		if err != nil {
			return errors.Wrap(err, "engine", "setup", "open persistence gateway")
		}
		e.gateway = gw
	}

	ledger := dedup.NewLedger(
		dedup.WithMaxEntries(e.cfg.Pipeline.LedgerMaxEntries),
		dedup.WithRetryCeiling(e.cfg.Pipeline.RetryCeiling),
	)
	interpreter := lockproto.NewInterpreter("", e.logger.With("component", "lockproto"))

	ingester, err := txingest.NewProcessor(
		"txingest", e.nats, e.cfg.NATS, e.cfg.Pipeline,
		e.gateway, ledger, interpreter, e.registry,
		e.logger,
	)
	if err != nil {
		return errors.Wrap(err, "engine", "setup", "build ingest processor")
	}
	e.ingester = ingester

	startHeight, err := ResolveStartHeight(ctx, e.cfg.Feed, e.gateway)
	if err != nil {
		return errors.Wrap(err, "engine", "setup", "resolve start height")
	}
	e.logger.Info("resume height resolved", "height", startHeight)

	feedInput, err := feed.NewInput(
		"feed", e.nats, e.cfg.Feed, e.cfg.NATS.RawSubject,
		startHeight, e.registry, e.logger,
	)
	if err != nil {
		return errors.Wrap(err, "engine", "setup", "build feed input")
	}
	e.feed = feedInput

	// Processor first so delivered transactions find a consumer; the stream
	// buffers regardless.
	e.components = []component.Lifecycle{e.ingester, e.feed}

	for _, c := range e.components {
		if err := c.Initialize(); err != nil {
			return errors.Wrap(err, "engine", "setup", "initialize "+c.Meta().Name)
		}
	}
	return nil
}

// ResolveStartHeight picks the feed resume height: explicit config wins,
// then the highest persisted height, then the configured default.
func ResolveStartHeight(ctx context.Context, cfg config.FeedConfig, gateway persist.Gateway) (uint32, error) {
	if cfg.StartHeight > 0 {
		return cfg.StartHeight, nil
	}

	persisted, err := gateway.MaxProcessedHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "engine", "ResolveStartHeight", "query persisted height")
	}
	if persisted > 0 {
		return persisted, nil
	}
	return cfg.DefaultStartHeight, nil
}

// startHTTP serves health probes and Prometheus metrics
func (e *Engine) startHTTP() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", e.handleHealthz)
	mux.HandleFunc("/readyz", e.handleReadyz)
	mux.Handle("/metrics", e.registry.Handler())

	e.httpServer = &http.Server{
		Addr:              e.cfg.HTTP.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := e.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("http server failed", "addr", e.cfg.HTTP.ListenAddr, "error", err)
		}
	}()
	e.logger.Info("http endpoint listening", "addr", e.cfg.HTTP.ListenAddr)
}

// handleHealthz reports liveness: the process is up
func (e *Engine) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// handleReadyz reports readiness: every component is healthy
func (e *Engine) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	for _, c := range e.components {
		if h := c.Health(); !h.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "%s unhealthy\n", c.Meta().Name)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}

// stopComponents stops started components in reverse order
func (e *Engine) stopComponents() {
	for idx := len(e.components) - 1; idx >= 0; idx-- {
		c := e.components[idx]
		if err := c.Stop(shutdownTimeout); err != nil {
			e.logger.Warn("component stop failed",
				"component", c.Meta().Name,
				"error", err)
		} else {
			e.logger.Info("component stopped", "component", c.Meta().Name)
		}
	}
	e.components = nil
}

// teardown releases infrastructure resources
func (e *Engine) teardown() {
	if e.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		e.httpServer.Shutdown(ctx)
		cancel()
		e.httpServer = nil
	}
	if e.gateway != nil {
		e.gateway.Close()
		e.gateway = nil
	}
	if e.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		e.nats.Close(ctx)
		cancel()
		e.nats = nil
	}
}
