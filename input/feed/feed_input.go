package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nedzof/lockd.app-sub000/component"
	"github.com/nedzof/lockd.app-sub000/config"
	"github.com/nedzof/lockd.app-sub000/errors"
	"github.com/nedzof/lockd.app-sub000/metric"
	"github.com/nedzof/lockd.app-sub000/natsclient"
	"github.com/nedzof/lockd.app-sub000/pkg/retry"
)

// Publisher is the bus surface the input needs. *natsclient.Client
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

var _ Publisher = (*natsclient.Client)(nil)

// Input subscribes to the upstream transaction feed and republishes every
// delivered transaction onto the JetStream bus.
type Input struct {
	name    string
	cfg     config.FeedConfig
	bus     Publisher
	subject string
	logger  *slog.Logger

	dialer *websocket.Dialer

	conn   *websocket.Conn
	connMu sync.Mutex

	reconnectAttempts atomic.Int32
	resumeHeight      atomic.Uint32
	state             atomic.Int32

	// fatal receives the terminal error when the reconnect budget is spent
	fatal chan error

	// Lifecycle management
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	doneOnce     sync.Once
	started      atomic.Bool
	startTime    time.Time
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lifecycleMu  sync.Mutex

	// Statistics
	txReceived   int64
	txPublished  int64
	errorCount   atomic.Int64
	lastActivity atomic.Value // stores time.Time

	metrics *Metrics
}

var (
	_ component.Lifecycle    = (*Input)(nil)
	_ component.Discoverable = (*Input)(nil)
)

// Metrics holds Prometheus metrics for the feed input. The shared pipeline
// metrics are updated alongside the per-component ones.
type Metrics struct {
	transactionsReceived  *prometheus.CounterVec
	transactionsPublished prometheus.Counter
	reconnects            prometheus.Counter
	connected             prometheus.Gauge
	blockHeight           prometheus.Gauge
	errorsTotal           *prometheus.CounterVec

	core *metric.Metrics
}

// newMetrics creates and registers feed input metrics
func newMetrics(registry *metric.MetricsRegistry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		core: registry.CoreMetrics(),

		transactionsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "transactions_received_total",
			Help:      "Total transactions delivered by the feed",
		}, []string{"component", "confirmed"}),

		transactionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "transactions_published_total",
			Help:      "Total transactions published to the bus",
		}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "reconnect_attempts_total",
			Help:      "Total feed reconnection attempts",
		}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "connected",
			Help:      "Whether the feed subscription is live (0 or 1)",
		}),

		blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "block_height",
			Help:      "Highest confirmed block height observed",
		}),

		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "feed_input",
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"component", "type"}),
	}

	registry.RegisterCounterVec(componentName, "transactions_received", m.transactionsReceived)
	registry.RegisterCounter(componentName, "transactions_published", m.transactionsPublished)
	registry.RegisterCounter(componentName, "reconnect_attempts", m.reconnects)
	registry.RegisterGauge(componentName, "connected", m.connected)
	registry.RegisterGauge(componentName, "block_height", m.blockHeight)
	registry.RegisterCounterVec(componentName, "errors_total", m.errorsTotal)

	return m
}

// NewInput creates the feed input. startHeight is the resolved resume
// height; the subscribe frame starts there.
func NewInput(
	name string,
	bus Publisher,
	cfg config.FeedConfig,
	subject string,
	startHeight uint32,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Input, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("feed URL is required"),
			"feed_input", "NewInput", "validate config")
	}
	if bus == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("bus publisher is required"),
			"feed_input", "NewInput", "validate config")
	}
	if subject == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("publish subject is required"),
			"feed_input", "NewInput", "validate config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	handshake := cfg.HandshakeTimeout.Std()
	if handshake <= 0 {
		handshake = 30 * time.Second
	}

	input := &Input{
		name:     name,
		cfg:      cfg,
		bus:      bus,
		subject:  subject,
		logger:   logger.With("component", name),
		dialer:   &websocket.Dialer{HandshakeTimeout: handshake},
		fatal:    make(chan error, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		metrics:  newMetrics(metricsRegistry, name),
	}
	input.resumeHeight.Store(startHeight)
	input.state.Store(int32(StateIdle))
	return input, nil
}

// State returns the current connection state
func (i *Input) State() State {
	return State(i.state.Load())
}

// ResumeHeight returns the height the next subscription starts from
func (i *Input) ResumeHeight() uint32 {
	return i.resumeHeight.Load()
}

// Fatal delivers the terminal error once the reconnect budget is spent
func (i *Input) Fatal() <-chan error {
	return i.fatal
}

// Meta returns component metadata
func (i *Input) Meta() component.Metadata {
	return component.Metadata{
		Name:        i.name,
		Type:        "input",
		Description: "WebSocket subscription to the upstream transaction feed",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (i *Input) Health() component.HealthStatus {
	started := i.started.Load()
	state := i.State()
	healthy := started &&
		(state == StateSubscribed || state == StateWaiting || state == StateProcessing)

	uptime := time.Duration(0)
	if started && !i.startTime.IsZero() {
		uptime = time.Since(i.startTime)
	}

	return component.HealthStatus{
		Healthy:    healthy,
		LastCheck:  time.Now(),
		ErrorCount: int(i.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (i *Input) DataFlow() component.FlowMetrics {
	received := atomic.LoadInt64(&i.txReceived)

	var perSecond float64
	if !i.startTime.IsZero() {
		if uptime := time.Since(i.startTime).Seconds(); uptime > 0 {
			perSecond = float64(received) / uptime
		}
	}

	lastAct := time.Time{}
	if v := i.lastActivity.Load(); v != nil {
		lastAct = v.(time.Time)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      lastAct,
	}
}

// Initialize implements component.Lifecycle
func (i *Input) Initialize() error {
	return nil
}

// Start begins the subscription loop
func (i *Input) Start(ctx context.Context) error {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()

	if i.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted,
			"feed_input", "Start", "check started state")
	}

	componentCtx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	i.wg.Add(1)
	go i.connectLoop(componentCtx)

	i.startTime = time.Now()
	i.started.Store(true)
	return nil
}

// Stop terminates the subscription and waits for the loop to exit
func (i *Input) Stop(timeout time.Duration) error {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()

	if !i.started.Load() {
		return nil
	}

	i.shutdownOnce.Do(func() {
		close(i.shutdown)
	})
	if i.cancel != nil {
		i.cancel()
	}
	i.closeConn()

	doneCh := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"feed_input", "Stop", "wait for goroutines")
	}

	i.doneOnce.Do(func() {
		close(i.done)
	})
	i.setState(StateStopped)
	i.started.Store(false)
	return nil
}

// connectLoop dials, subscribes and reads until shutdown or budget
// exhaustion.
func (i *Input) connectLoop(ctx context.Context) {
	defer i.wg.Done()

	backoff := retry.Config{
		InitialDelay: i.cfg.ReconnectInitialInterval.Std(),
		MaxDelay:     i.cfg.ReconnectMaxInterval.Std(),
		Multiplier:   2.0,
		AddJitter:    true,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.shutdown:
			return
		default:
		}

		i.setState(StateConnecting)
		conn, err := i.dial(ctx)
		if err != nil {
			i.trackError("connect_error")
			i.logger.Warn("feed connect failed",
				"url", i.cfg.URL,
				"attempt", i.reconnectAttempts.Load(),
				"error", err)

			if !i.shouldReconnect() {
				i.giveUp(err)
				return
			}
			if !i.sleep(ctx, backoff.Delay(int(i.reconnectAttempts.Load()))) {
				return
			}
			continue
		}

		if err := i.subscribe(conn); err != nil {
			i.trackError("subscribe_error")
			i.logger.Warn("feed subscribe failed", "error", err)
			conn.Close()

			if !i.shouldReconnect() {
				i.giveUp(err)
				return
			}
			if !i.sleep(ctx, backoff.Delay(int(i.reconnectAttempts.Load()))) {
				return
			}
			continue
		}

		i.reconnectAttempts.Store(0)
		i.setConn(conn)
		i.setState(StateSubscribed)
		if i.metrics != nil {
			i.metrics.connected.Set(1)
			i.metrics.core.FeedConnected.Set(1)
		}
		i.logger.Info("feed subscribed",
			"url", i.cfg.URL,
			"from_height", i.resumeHeight.Load())

		i.readLoop(ctx, conn)

		i.setConn(nil)
		conn.Close()
		i.setState(StateDisconnected)
		if i.metrics != nil {
			i.metrics.connected.Set(0)
			i.metrics.core.FeedConnected.Set(0)
		}

		select {
		case <-ctx.Done():
			return
		case <-i.shutdown:
			return
		default:
		}

		if !i.shouldReconnect() {
			i.giveUp(errors.ErrConnectionLost)
			return
		}
		if !i.sleep(ctx, backoff.Delay(int(i.reconnectAttempts.Load()))) {
			return
		}
	}
}

// dial opens the WebSocket connection
func (i *Input) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	if i.cfg.Token != "" {
		headers.Set("Authorization", "Bearer "+i.cfg.Token)
	}

	conn, _, err := i.dialer.DialContext(ctx, i.cfg.URL, headers)
	if err != nil {
		return nil, errors.WrapTransient(err, "feed_input", "dial", "dial feed endpoint")
	}
	return conn, nil
}

// subscribe sends the subscribe frame from the current resume height
func (i *Input) subscribe(conn *websocket.Conn) error {
	frame := subscribeFrame{
		Action:     "subscribe",
		FromHeight: i.resumeHeight.Load(),
		Token:      i.cfg.Token,
	}
	if err := conn.WriteJSON(frame); err != nil {
		return errors.WrapTransient(err, "feed_input", "subscribe", "send subscribe frame")
	}
	return nil
}

// readLoop consumes frames until disconnect or shutdown
func (i *Input) readLoop(ctx context.Context, conn *websocket.Conn) {
	const readDeadline = time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.shutdown:
			return
		default:
			conn.SetReadDeadline(time.Now().Add(readDeadline))

			_, message, err := conn.ReadMessage()
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // recheck shutdown
				}
				i.trackError("read_error")
				return
			}

			frame, err := parseFrame(message)
			if err != nil {
				i.trackError("parse_error")
				i.logger.Debug("unparseable feed frame dropped", "error", err)
				continue
			}

			i.lastActivity.Store(time.Now())

			switch frame.Type {
			case frameTransaction:
				if frame.Transaction != nil {
					i.handleTransaction(ctx, frame.Transaction)
				}
			case frameStatus:
				if frame.Status != nil && !i.handleStatus(frame.Status) {
					return // status demands a reconnect
				}
			case frameError:
				i.trackError("feed_error")
				i.logger.Error("feed reported error", "error", frame.Error)
				return
			default:
				i.logger.Debug("unknown feed frame type", "type", frame.Type)
			}
		}
	}
}

// handleTransaction publishes a delivered transaction to the bus
func (i *Input) handleTransaction(ctx context.Context, frame *txFrame) {
	i.setState(StateProcessing)
	atomic.AddInt64(&i.txReceived, 1)

	tx := frame.tx()
	if i.metrics != nil {
		i.metrics.transactionsReceived.
			WithLabelValues(i.name, fmt.Sprintf("%t", tx.Confirmed)).Inc()
		i.metrics.core.TransactionsReceived.WithLabelValues(i.name).Inc()
	}

	if tx.ID == "" {
		i.trackError("empty_tx_id")
		return
	}

	data, err := encodeTx(tx)
	if err != nil {
		i.trackError("encode_error")
		i.logger.Error("transaction envelope encoding failed", "tx_id", tx.ID, "error", err)
		return
	}

	if err := i.bus.Publish(ctx, i.subject, data); err != nil {
		i.trackError("publish_error")
		i.logger.Error("bus publish failed", "tx_id", tx.ID, "error", err)
		return
	}

	atomic.AddInt64(&i.txPublished, 1)
	if i.metrics != nil {
		i.metrics.transactionsPublished.Inc()
	}

	if tx.Confirmed {
		i.advanceHeight(tx.BlockHeight)
	}
}

// handleStatus processes a provider status frame. Returns false when the
// connection must be dropped and redialed.
func (i *Input) handleStatus(status *statusFrame) bool {
	switch status.Code {
	case statusBlockDone:
		i.logger.Info("block complete", "height", status.Block)
		i.advanceHeight(status.Block)
		return true
	case statusWaiting:
		// Normal idle chatter at chain tip, keep it out of info logs
		i.logger.Debug("feed waiting for new blocks", "height", status.Block)
		i.setState(StateWaiting)
		return true
	case statusReorg:
		// No rollback: downstream upserts are idempotent, replayed blocks
		// converge on the same records
		i.logger.Warn("chain reorganization reported",
			"height", status.Block,
			"message", status.Message)
		return true
	case statusError:
		i.trackError("status_error")
		i.logger.Error("feed status error",
			"height", status.Block,
			"message", status.Message)
		return false
	default:
		i.logger.Debug("unknown feed status", "code", status.Code)
		return true
	}
}

// advanceHeight moves the resume height forward, never backward
func (i *Input) advanceHeight(height uint32) {
	if height == 0 {
		return
	}
	for {
		current := i.resumeHeight.Load()
		if height <= current {
			return
		}
		if i.resumeHeight.CompareAndSwap(current, height) {
			if i.metrics != nil {
				i.metrics.blockHeight.Set(float64(height))
				i.metrics.core.FeedBlockHeight.Set(float64(height))
			}
			return
		}
	}
}

// shouldReconnect consumes one attempt from the reconnect budget
func (i *Input) shouldReconnect() bool {
	current := i.reconnectAttempts.Load()
	if i.cfg.MaxReconnects > 0 && int(current) >= i.cfg.MaxReconnects {
		return false
	}

	i.reconnectAttempts.Add(1)
	if i.metrics != nil {
		i.metrics.reconnects.Inc()
		i.metrics.core.FeedReconnects.Inc()
	}
	return true
}

// giveUp reports budget exhaustion through the fatal channel
func (i *Input) giveUp(cause error) {
	err := errors.WrapFatal(
		fmt.Errorf("%w after %d attempts: %w",
			errors.ErrReconnectExhausted, i.cfg.MaxReconnects, cause),
		"feed_input", "connectLoop", "reconnect to feed")

	i.logger.Error("feed reconnect budget exhausted",
		"attempts", i.cfg.MaxReconnects,
		"error", cause)
	i.setState(StateStopped)

	select {
	case i.fatal <- err:
	default:
	}
}

// sleep waits for the delay unless shutdown intervenes
func (i *Input) sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-i.shutdown:
		return false
	case <-timer.C:
		return true
	}
}

func (i *Input) setConn(conn *websocket.Conn) {
	i.connMu.Lock()
	i.conn = conn
	i.connMu.Unlock()
}

func (i *Input) closeConn() {
	i.connMu.Lock()
	if i.conn != nil {
		i.conn.Close()
		i.conn = nil
	}
	i.connMu.Unlock()
}

func (i *Input) setState(s State) {
	i.state.Store(int32(s))
}

// trackError increments error counters
func (i *Input) trackError(errorType string) {
	i.errorCount.Add(1)
	if i.metrics != nil {
		i.metrics.errorsTotal.WithLabelValues(i.name, errorType).Inc()
		i.metrics.core.ErrorsTotal.WithLabelValues(i.name, errorType).Inc()
	}
}
