// Package client implements the reconnecting side of the relay: a single
// outbound WebSocket connection that is re-established with bounded
// exponential backoff whenever it drops.
package client

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/metrics"
	"github.com/Tyrowin/wsrelay/internal/protocol"
)

var (
	// ErrNotConnected is returned by Send when no connection came up within
	// the send timeout.
	ErrNotConnected = errors.New("not connected to server")
	// ErrShutdown is returned by Send after Shutdown.
	ErrShutdown = errors.New("peer is shut down")
)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Peer keeps one logical connection to a hub alive and answers foreign user
// messages with an echo.
type Peer struct {
	cfg        Config
	dialer     Dialer
	sleep      SleepFunc
	newID      func() string
	logf       func(string, ...any)
	metrics    *metrics.Peer
	onEnvelope func(protocol.Envelope)

	mu        sync.Mutex
	state     State
	selfID    string
	conn      *websocket.Conn
	backoff   time.Duration
	connected chan struct{} // closed while state is Connected

	writeMu sync.Mutex

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// Option customizes a Peer.
type Option func(*Peer)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(p *Peer) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithSleep replaces the backoff sleep, letting tests skip real delays.
func WithSleep(sleep SleepFunc) Option {
	return func(p *Peer) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithIDGenerator replaces the random self-id generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Peer) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// WithLogger replaces log.Printf as the peer's log sink.
func WithLogger(logf func(string, ...any)) Option {
	return func(p *Peer) {
		if logf != nil {
			p.logf = logf
		}
	}
}

// WithMetrics records peer activity in m.
func WithMetrics(m *metrics.Peer) Option {
	return func(p *Peer) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithEnvelopeHandler is called from the network loop for every well-formed
// envelope received.
func WithEnvelopeHandler(fn func(protocol.Envelope)) Option {
	return func(p *Peer) {
		p.onEnvelope = fn
	}
}

// NewPeer creates a peer for cfg.URL. Call Run to start connecting.
func NewPeer(cfg Config, opts ...Option) *Peer {
	cfg = sanitizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	p := &Peer{
		cfg:       cfg,
		dialer:    &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.HandshakeTimeout},
		sleep:     sleepContext,
		newID:     randomID,
		logf:      log.Printf,
		state:     Disconnected,
		backoff:   cfg.InitialBackoff,
		connected: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewPeer(nil)
	}
	p.metrics.BackoffSeconds.Set(cfg.InitialBackoff.Seconds())
	return p
}

func randomID() string {
	return rand.Text()[:16]
}

// State returns the current connection state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SelfID returns the id assigned at the last successful connect, or "" while
// disconnected.
func (p *Peer) SelfID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selfID
}

// Backoff returns the delay that precedes the next reconnect attempt.
func (p *Peer) Backoff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff
}

func (p *Peer) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || p.ctx.Err() != nil
}

// Run connects and reconnects until ctx is cancelled or Shutdown is called.
// It must not be called concurrently with itself.
func (p *Peer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	for !p.stopped(ctx) {
		if conn, err := p.connect(ctx); err == nil {
			p.serve(ctx, conn)
		}
		if p.stopped(ctx) {
			break
		}

		wait := p.Backoff()
		p.logf("Connection lost, retrying in %s", wait)
		if err := p.sleep(ctx, wait); err != nil {
			break
		}
		p.advanceBackoff()
	}

	p.logf("Peer stopped")
	return nil
}

func (p *Peer) advanceBackoff() {
	p.mu.Lock()
	p.backoff = NextBackoff(p.backoff, p.cfg.MaxBackoff)
	next := p.backoff
	p.mu.Unlock()
	p.metrics.BackoffSeconds.Set(next.Seconds())
}

func (p *Peer) setConnecting() {
	p.mu.Lock()
	p.state = Connecting
	p.mu.Unlock()
}

func (p *Peer) connect(ctx context.Context) (*websocket.Conn, error) {
	p.setConnecting()
	p.metrics.ConnectAttempts.Inc()
	p.logf("Attempting to connect to %s", p.cfg.URL)

	conn, resp, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		p.metrics.ConnectFailures.Inc()
		p.logf("Connection to %s failed: %v", p.cfg.URL, err)
		p.markDisconnected(nil)
		return nil, err
	}

	if err := p.onOpen(conn); err != nil {
		p.markDisconnected(nil)
		return nil, err
	}
	return conn, nil
}

// onOpen greets the hub under a fresh self id, then moves to Connected and
// resets the backoff. The greeting is always the first frame on a
// connection because Send only writes once the state is Connected.
func (p *Peer) onOpen(conn *websocket.Conn) error {
	id := p.newID()

	if err := p.write(conn, protocol.NewUser(p.cfg.Greeting, id)); err != nil {
		p.logf("Failed to send initial message: %v", err)
		p.closeConn(conn)
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.state = Connected
	p.selfID = id
	p.backoff = p.cfg.InitialBackoff
	close(p.connected)
	p.mu.Unlock()

	p.metrics.Connected.Set(1)
	p.metrics.BackoffSeconds.Set(p.cfg.InitialBackoff.Seconds())
	p.logf("Connected to server, client ID: %s", id)
	p.logf("Sent initial message: %s", p.cfg.Greeting)
	return nil
}

// markDisconnected clears connection state. A non-nil conn is only cleared
// if it is still the active one.
func (p *Peer) markDisconnected(conn *websocket.Conn) {
	p.mu.Lock()
	if conn != nil && p.conn != conn {
		p.mu.Unlock()
		return
	}
	if p.state == Connected {
		p.connected = make(chan struct{})
	}
	p.state = Disconnected
	p.selfID = ""
	p.conn = nil
	p.mu.Unlock()

	p.metrics.Connected.Set(0)
}

// serve runs the read loop for conn until it fails or ctx ends.
func (p *Peer) serve(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		p.markDisconnected(conn)
		_ = conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() { p.closeConn(conn) })
	defer stop()

	readWait := p.cfg.PingInterval + p.cfg.PongTimeout
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go p.keepalive(conn, pingDone)

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			p.logClose(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		p.handleFrame(conn, raw)
	}
}

func (p *Peer) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.cfg.WriteWait)); err != nil {
				p.logf("Ping failed: %v", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (p *Peer) logClose(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		p.logf("Connection closed - status code: %d, message: %q", closeErr.Code, closeErr.Text)
		return
	}
	p.logf("Connection closed: %v", err)
}

// closeConn sends a close frame and closes conn. Safe to call concurrently
// and more than once.
func (p *Peer) closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.cfg.WriteWait))
	_ = conn.Close()
}

// Shutdown closes the active connection and stops the retry loop for good.
func (p *Peer) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.logf("Shutting down peer")
		p.cancel()

		p.mu.Lock()
		conn := p.conn
		p.mu.Unlock()
		if conn != nil {
			p.closeConn(conn)
		}
	})
}
