package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns the logical streaming connection: it drives
// connect/backoff/reconnect, authenticates each socket, replays
// subscriptions, and multiplexes inbound frames between pending
// request waiters and subscription handlers.
type Manager interface {
	// Start connects and returns once the first connection and handshake
	// succeed, or with an error once the reconnect ceiling is exhausted.
	Start(ctx context.Context) error

	// Stop tears the connection down and fails every outstanding waiter.
	// It returns after all background work has finished.
	Stop(ctx context.Context) error

	// Subscribe registers a handler for (channel, id). When connected the
	// wire subscribe frame is emitted immediately; otherwise membership
	// alone guarantees emission on the next replay.
	Subscribe(channel, id string, h Handler) error

	// Unsubscribe removes the whole (channel, id) entry and, when
	// connected, emits the wire unsubscribe frame.
	Unsubscribe(channel, id string) error

	// Request sends a correlated request and awaits the reply. The wait
	// is bounded by ctx; it fails promptly on disconnect.
	Request(ctx context.Context, action, id string, args any) (json.RawMessage, error)

	// Send writes one outbound frame. Fails with ErrNotConnected when no
	// socket is active.
	Send(frame any) error

	// State returns the current connection state.
	State() State

	// Stats returns current connection statistics.
	Stats() Stats

	// Done is closed when the manager fails terminally; Err then reports
	// the fatal error.
	Done() <-chan struct{}
	Err() error

	// Typed request helpers.
	DepthSnapshot(ctx context.Context, symbol string) (json.RawMessage, error)
	TradeSnapshot(ctx context.Context, symbol string, level int) (json.RawMessage, error)
	OpenOrders(ctx context.Context, symbol string) (json.RawMessage, error)
	PlaceOrder(order Order) (string, error)
	CancelOrder(origID, symbol string) (string, error)
	CancelAll(symbol string) error
}

// Stats provides statistics about the stream manager.
type Stats struct {
	State           State
	PendingRequests int
	Subscriptions   int
}

// manager implements the Manager interface.
type manager struct {
	cfg    Config
	logger *slog.Logger

	pending  *pendingTable
	registry *registry
	dispatch *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Active socket; nil outside the Connected window.
	mu     sync.Mutex
	client Client

	state atomic.Int32

	done  chan struct{}
	once  sync.Once
	fatal error
}

// New creates a stream Manager.
func New(cfg Config, logger *slog.Logger) Manager {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		cfg:      cfg,
		logger:   logger,
		pending:  newPendingTable(logger),
		registry: newRegistry(cfg.DedupHandlers),
		done:     make(chan struct{}),
	}
	m.dispatch = newDispatcher(m.pending, m.registry, m.answerPing, logger)
	return m
}

// Start runs the connection loop. It blocks until the first successful
// handshake, a terminal failure, or ctx cancellation.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	ready := make(chan error, 1)
	m.wg.Add(1)
	go m.run(ready)

	if err := <-ready; err != nil {
		m.cancel()
		m.wg.Wait()
		return err
	}
	return nil
}

// Stop tears down deterministically: it cancels the run loop, closes the
// socket, awaits all background work, and fails every outstanding waiter.
func (m *manager) Stop(ctx context.Context) error {
	m.setState(StateClosing)

	if m.cancel == nil {
		m.setState(StateDisconnected)
		return nil
	}
	m.cancel()

	if cl := m.currentClient(); cl != nil {
		cl.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("stream shutdown timed out")
		return ctx.Err()
	}

	m.pending.failAll(ErrConnectionLost)
	m.setState(StateDisconnected)
	m.logger.Info("stream manager stopped")
	return nil
}

// run owns the connection lifecycle: one established connection at a
// time, full-jitter backoff between attempts, terminal failure once the
// ceiling is reached. The attempt counter resets on handshake success.
func (m *manager) run(ready chan<- error) {
	defer m.wg.Done()

	readySent := false
	signal := func(err error) {
		if !readySent {
			readySent = true
			ready <- err
		}
	}

	attempts := 0
	for {
		cl, readDone, err := m.establish()
		if err == nil {
			attempts = 0
			signal(nil)

			err = <-readDone
			m.clearClient()
			m.pending.failAll(ErrConnectionLost)
			cl.Close()

			if m.ctx.Err() != nil {
				m.setState(StateDisconnected)
				return
			}
			m.setState(StateConnecting)
			m.logger.Warn("connection lost", "error", err)
		} else {
			if m.ctx.Err() != nil {
				signal(m.ctx.Err())
				return
			}
			m.logger.Warn("connection attempt failed", "error", err)
		}

		attempts++
		if attempts >= m.cfg.MaxReconnects {
			fatal := fmt.Errorf("%w: %d consecutive failures", ErrReconnectExhausted, attempts)
			m.logger.Error("reconnect ceiling reached", "attempts", attempts)
			m.setState(StateDisconnected)
			m.fail(fatal)
			signal(fatal)
			return
		}

		wait := reconnectWait(attempts, m.cfg.ReconnectMaxWait)
		m.logger.Info("reconnecting",
			"attempt", attempts,
			"remaining", m.cfg.MaxReconnects-attempts,
			"wait", wait,
		)
		select {
		case <-m.ctx.Done():
			signal(m.ctx.Err())
			return
		case <-time.After(wait):
		}
	}
}

// establish performs one full connection attempt: dial, read pump,
// signed handshake, subscription replay. The manager is Connected only
// after handshake success, never from socket-open alone.
func (m *manager) establish() (Client, <-chan error, error) {
	m.setState(StateConnecting)

	cl := NewClient(ClientConfig{
		URL:          m.cfg.URL,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger)

	if err := cl.Connect(m.ctx); err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}

	readDone := make(chan error, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		readDone <- m.readLoop(cl)
	}()

	if err := m.handshake(cl); err != nil {
		cl.Close()
		<-readDone
		return nil, nil, fmt.Errorf("handshake: %w", err)
	}

	m.setClient(cl)
	m.setState(StateConnected)
	m.replaySubscriptions(cl)

	return cl, readDone, nil
}

// readLoop processes inbound frames strictly in arrival order. Inactivity
// triggers a keepalive probe, never an assumed failure; actual failure is
// detected only via transport-level closure.
func (m *manager) readLoop(cl Client) error {
	for {
		select {
		case <-m.ctx.Done():
			return nil

		case err := <-cl.Errors():
			m.pending.failAll(ErrConnectionLost)
			return err

		case msg, ok := <-cl.Messages():
			if !ok {
				m.pending.failAll(ErrConnectionLost)
				return ErrConnectionLost
			}
			m.dispatch.dispatch(msg.Data)

		case <-time.After(m.cfg.ReadTimeout):
			m.logger.Debug("no inbound frame, probing", "timeout", m.cfg.ReadTimeout)
			if err := cl.Send(pingFrame); err != nil {
				m.logger.Warn("keepalive probe failed", "error", err)
			}
		}
	}
}

// replaySubscriptions re-emits a subscribe frame for every live
// (channel, id). Best effort with no acknowledgment tracking; the server
// treats duplicate subscribes as idempotent.
func (m *manager) replaySubscriptions(cl Client) {
	keys := m.registry.keys()
	for _, k := range keys {
		data, _ := json.Marshal(subFrame{Op: "sub", Ch: k.wire()})
		if err := cl.Send(data); err != nil {
			m.logger.Warn("subscription replay failed", "ch", k.wire(), "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("replayed subscriptions", "count", len(keys))
	}
}

// Subscribe registers a handler and, when connected, emits the wire
// subscribe frame. The entry remains registered even if the emit fails;
// the next replay covers it.
func (m *manager) Subscribe(channel, id string, h Handler) error {
	if h == nil {
		return errors.New("nil handler")
	}

	m.registry.add(channel, id, h)

	if m.State() != StateConnected {
		return nil
	}
	return m.Send(subFrame{Op: "sub", Ch: channel + ":" + id})
}

// Unsubscribe removes the (channel, id) entry entirely and, when
// connected, emits the wire unsubscribe frame.
func (m *manager) Unsubscribe(channel, id string) error {
	if !m.registry.remove(channel, id) {
		return nil
	}

	if m.State() != StateConnected {
		return nil
	}
	return m.Send(subFrame{Op: "unsub", Ch: channel + ":" + id})
}

// Request sends a correlated request frame and awaits the reply.
func (m *manager) Request(ctx context.Context, action, id string, args any) (json.RawMessage, error) {
	frame := requestFrame{Op: "req", Action: action, ID: id, Args: args}
	return m.request(ctx, frame, action, id)
}

// request registers the waiter before sending so the reply cannot win
// the race. A request issued during the reconnect window fails
// immediately with ErrNotConnected rather than queueing.
func (m *manager) request(ctx context.Context, frame requestFrame, action, waitID string) (json.RawMessage, error) {
	if m.State() != StateConnected {
		return nil, ErrNotConnected
	}

	w := m.pending.await(action, waitID)

	if err := m.Send(frame); err != nil {
		m.pending.forget(w)
		return nil, err
	}

	return w.wait(ctx, m.pending)
}

// Send encodes and writes one outbound frame on the active socket.
func (m *manager) Send(frame any) error {
	cl := m.currentClient()
	if cl == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return cl.Send(data)
}

// State returns the current connection state.
func (m *manager) State() State {
	return State(m.state.Load())
}

// Stats returns current statistics.
func (m *manager) Stats() Stats {
	return Stats{
		State:           m.State(),
		PendingRequests: m.pending.size(),
		Subscriptions:   m.registry.size(),
	}
}

// Done is closed on terminal failure.
func (m *manager) Done() <-chan struct{} {
	return m.done
}

// Err reports the terminal failure after Done is closed, nil before.
func (m *manager) Err() error {
	select {
	case <-m.done:
		return m.fatal
	default:
		return nil
	}
}

func (m *manager) fail(err error) {
	m.once.Do(func() {
		m.fatal = err
		close(m.done)
	})
}

// answerPing replies to an inbound keepalive on the active socket.
func (m *manager) answerPing() {
	cl := m.currentClient()
	if cl == nil {
		return
	}
	if err := cl.Send(pingFrame); err != nil {
		m.logger.Debug("keepalive answer failed", "error", err)
	}
}

func (m *manager) setState(s State) {
	m.state.Store(int32(s))
}

func (m *manager) setClient(cl Client) {
	m.mu.Lock()
	m.client = cl
	m.mu.Unlock()
}

func (m *manager) clearClient() {
	m.mu.Lock()
	m.client = nil
	m.mu.Unlock()
}

func (m *manager) currentClient() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}
