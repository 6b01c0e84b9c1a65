package txingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nedzof/lockd.app-sub000/chain"
	"github.com/nedzof/lockd.app-sub000/component"
	"github.com/nedzof/lockd.app-sub000/config"
	"github.com/nedzof/lockd.app-sub000/errors"
	"github.com/nedzof/lockd.app-sub000/lockproto"
	"github.com/nedzof/lockd.app-sub000/metric"
	"github.com/nedzof/lockd.app-sub000/natsclient"
	"github.com/nedzof/lockd.app-sub000/persist"
	"github.com/nedzof/lockd.app-sub000/pkg/dedup"
	"github.com/nedzof/lockd.app-sub000/pkg/worker"
)

// Bus is the consuming surface the processor needs. *natsclient.Client
// satisfies it.
type Bus interface {
	Consume(ctx context.Context, stream, durable string, handler func(msg jetstream.Msg)) error
	StopConsumer(durable string)
}

var _ Bus = (*natsclient.Client)(nil)

// Processor drives the parse-then-persist sequence for every transaction on
// the bus.
type Processor struct {
	name        string
	cfg         config.PipelineConfig
	bus         Bus
	stream      string
	durable     string
	gateway     persist.Gateway
	ledger      *dedup.Ledger
	interpreter *lockproto.Interpreter
	pool        *worker.Pool[jetstream.Msg]
	logger      *slog.Logger

	// Lifecycle management
	started     atomic.Bool
	startTime   time.Time
	cancel      context.CancelFunc
	lifecycleMu sync.Mutex

	// Statistics
	processed    int64
	persisted    int64
	skipped      int64
	failed       int64
	errorCount   atomic.Int64
	lastActivity atomic.Value // stores time.Time

	metrics *Metrics
}

var (
	_ component.Lifecycle    = (*Processor)(nil)
	_ component.Discoverable = (*Processor)(nil)
)

// Metrics holds Prometheus metrics for the ingest processor. The shared
// pipeline metrics are updated alongside the per-component ones.
type Metrics struct {
	transactionsProcessed *prometheus.CounterVec
	recordsPersisted      *prometheus.CounterVec
	processingDuration    prometheus.Histogram
	errorsTotal           *prometheus.CounterVec

	core *metric.Metrics
}

// newMetrics creates and registers processor metrics
func newMetrics(registry *metric.MetricsRegistry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		core: registry.CoreMetrics(),

		transactionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "txingest",
			Name:      "transactions_processed_total",
			Help:      "Total transactions processed by outcome",
		}, []string{"component", "outcome"}),

		recordsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "txingest",
			Name:      "records_persisted_total",
			Help:      "Total records stored by kind",
		}, []string{"component", "kind"}),

		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "txingest",
			Name:      "processing_duration_seconds",
			Help:      "Duration of one parse-then-persist sequence",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),

		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "txingest",
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"component", "type"}),
	}

	registry.RegisterCounterVec(componentName, "transactions_processed", m.transactionsProcessed)
	registry.RegisterCounterVec(componentName, "records_persisted", m.recordsPersisted)
	registry.RegisterHistogram(componentName, "processing_duration", m.processingDuration)
	registry.RegisterCounterVec(componentName, "errors_total", m.errorsTotal)

	return m
}

// NewProcessor wires the ingest processor
func NewProcessor(
	name string,
	bus Bus,
	natsCfg config.NATSConfig,
	cfg config.PipelineConfig,
	gateway persist.Gateway,
	ledger *dedup.Ledger,
	interpreter *lockproto.Interpreter,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Processor, error) {
	if bus == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("bus is required"),
			"txingest", "NewProcessor", "validate dependencies")
	}
	if gateway == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("persistence gateway is required"),
			"txingest", "NewProcessor", "validate dependencies")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ledger == nil {
		ledger = dedup.NewLedger(
			dedup.WithMaxEntries(cfg.LedgerMaxEntries),
			dedup.WithRetryCeiling(cfg.RetryCeiling),
		)
	}
	if interpreter == nil {
		interpreter = lockproto.NewInterpreter("", logger)
	}

	p := &Processor{
		name:        name,
		cfg:         cfg,
		bus:         bus,
		stream:      natsCfg.Stream,
		durable:     natsCfg.Durable,
		gateway:     gateway,
		ledger:      ledger,
		interpreter: interpreter,
		logger:      logger.With("component", name),
		metrics:     newMetrics(metricsRegistry, name),
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	var poolOpts []worker.Option[jetstream.Msg]
	if metricsRegistry != nil {
		poolOpts = append(poolOpts,
			worker.WithMetricsRegistry[jetstream.Msg](metricsRegistry, name))
	}
	p.pool = worker.NewPool(workers, queueSize, p.processMsg, poolOpts...)

	return p, nil
}

// Meta returns component metadata
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Parses protocol transactions from the bus and persists records",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (p *Processor) Health() component.HealthStatus {
	started := p.started.Load()
	uptime := time.Duration(0)
	if started && !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}
	return component.HealthStatus{
		Healthy:    started,
		LastCheck:  time.Now(),
		ErrorCount: int(p.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (p *Processor) DataFlow() component.FlowMetrics {
	processed := atomic.LoadInt64(&p.processed)

	var perSecond float64
	if !p.startTime.IsZero() {
		if uptime := time.Since(p.startTime).Seconds(); uptime > 0 {
			perSecond = float64(processed) / uptime
		}
	}

	lastAct := time.Time{}
	if v := p.lastActivity.Load(); v != nil {
		lastAct = v.(time.Time)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      lastAct,
	}
}

// Initialize implements component.Lifecycle
func (p *Processor) Initialize() error {
	return nil
}

// Start launches the worker pool and binds the durable consumer
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted,
			"txingest", "Start", "check started state")
	}

	componentCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.pool.Start(componentCtx); err != nil {
		cancel()
		return errors.WrapFatal(err, "txingest", "Start", "start worker pool")
	}

	if err := p.bus.Consume(componentCtx, p.stream, p.durable, p.handleMessage); err != nil {
		cancel()
		p.pool.Stop(time.Second)
		return errors.WrapTransient(err, "txingest", "Start", "bind durable consumer")
	}

	p.startTime = time.Now()
	p.started.Store(true)
	p.logger.Info("ingest processor started",
		"stream", p.stream,
		"durable", p.durable,
		"workers", p.cfg.Workers)
	return nil
}

// Stop unbinds the consumer and drains in-flight work
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started.Load() {
		return nil
	}

	// Stop delivery first so the pool only drains what is already queued
	p.bus.StopConsumer(p.durable)

	err := p.pool.Stop(timeout)
	if p.cancel != nil {
		p.cancel()
	}
	p.started.Store(false)

	if err != nil {
		return errors.WrapTransient(err, "txingest", "Stop", "drain worker pool")
	}
	return nil
}

// handleMessage dispatches one bus message onto the pool. Blocking submit
// gives natural backpressure against the consumer's ack window.
func (p *Processor) handleMessage(msg jetstream.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), p.processTimeout())
	defer cancel()

	if err := p.pool.SubmitWait(ctx, msg); err != nil {
		p.trackError("submit_error")
		// Not acked: redelivered after the ack wait
		p.logger.Warn("work submission failed, message will redeliver", "error", err)
	}
}

// processMsg is the pool worker body: decode, dedup, parse, persist, ack
func (p *Processor) processMsg(_ context.Context, msg jetstream.Msg) error {
	start := time.Now()
	p.lastActivity.Store(start)
	atomic.AddInt64(&p.processed, 1)

	env, err := chain.DecodeEnvelope(msg.Data())
	if err != nil || env.TxID == "" {
		// Permanently unusable payload
		p.trackError("decode_error")
		p.noteOutcome("terminated")
		msg.Term()
		return nil
	}
	txID := env.TxID

	if p.ledger.Succeeded(txID) {
		p.noteOutcome("duplicate")
		msg.Ack()
		return nil
	}
	if !p.ledger.ShouldRetry(txID) {
		p.logger.Warn("retry ceiling reached, dropping transaction", "tx_id", txID)
		p.noteOutcome("terminated")
		msg.Term()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.processTimeout())
	defer cancel()

	outcome, err := p.ingest(ctx, env)
	if p.metrics != nil {
		elapsed := time.Since(start).Seconds()
		p.metrics.processingDuration.Observe(elapsed)
		p.metrics.core.ProcessingDuration.WithLabelValues(p.name, "ingest").Observe(elapsed)
	}

	if err != nil {
		p.handleFailure(ctx, msg, txID, err, env.Raw)
		return nil
	}

	p.ledger.MarkSuccess(txID)
	p.noteOutcome(outcome)
	msg.Ack()
	return nil
}

// ingest runs the parse-then-persist sequence for one transaction
func (p *Processor) ingest(ctx context.Context, env *chain.TxEnvelope) (string, error) {
	tx := env.Tx()

	items := chain.DataItems(tx)
	if len(items) == 0 {
		atomic.AddInt64(&p.skipped, 1)
		return "skipped", nil
	}

	rec := p.interpreter.Interpret(tx, items)
	if rec == nil || !rec.Valid() {
		atomic.AddInt64(&p.skipped, 1)
		return "skipped", nil
	}

	if _, err := p.gateway.UpsertRecord(ctx, rec); err != nil {
		return "", errors.Wrap(err, "txingest", "ingest", "persist record")
	}

	atomic.AddInt64(&p.persisted, 1)
	if p.metrics != nil {
		p.metrics.recordsPersisted.WithLabelValues(p.name, string(rec.Kind)).Inc()
		p.metrics.core.RecordsPersisted.WithLabelValues(p.name, string(rec.Kind)).Inc()
	}
	p.logger.Debug("record persisted",
		"tx_id", rec.TxID,
		"kind", string(rec.Kind),
		"height", rec.BlockHeight)
	return "persisted", nil
}

// handleFailure audits the failure and decides between redelivery and
// termination.
func (p *Processor) handleFailure(ctx context.Context, msg jetstream.Msg, txID string, procErr error, raw []byte) {
	atomic.AddInt64(&p.failed, 1)
	p.trackError("ingest_error")
	p.logger.Error("transaction processing failed",
		"tx_id", txID,
		"failures", p.ledger.Failures(txID)+1,
		"error", procErr)

	if err := p.gateway.SaveFailure(ctx, txID, procErr, raw); err != nil {
		p.trackError("audit_error")
		p.logger.Error("failure audit write failed", "tx_id", txID, "error", err)
	}

	p.ledger.MarkFailure(txID)

	// Invalid payloads never improve on redelivery
	if errors.IsInvalid(procErr) || !p.ledger.ShouldRetry(txID) {
		p.noteOutcome("terminated")
		msg.Term()
		return
	}
	p.noteOutcome("retried")
	msg.Nak()
}

func (p *Processor) processTimeout() time.Duration {
	if t := p.cfg.ProcessTimeout.Std(); t > 0 {
		return t
	}
	return 10 * time.Second
}

func (p *Processor) noteOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.transactionsProcessed.WithLabelValues(p.name, outcome).Inc()
		p.metrics.core.TransactionsProcessed.WithLabelValues(p.name, outcome).Inc()
	}
}

// trackError increments error counters
func (p *Processor) trackError(errorType string) {
	p.errorCount.Add(1)
	if p.metrics != nil {
		p.metrics.errorsTotal.WithLabelValues(p.name, errorType).Inc()
		p.metrics.core.ErrorsTotal.WithLabelValues(p.name, errorType).Inc()
	}
}
