// Package server coordinates peer registration, operator broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"cmp"
	"context"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/metrics"
	"github.com/Tyrowin/wsrelay/internal/protocol"
)

// Hub accepts any number of peers, relays operator broadcasts to all of them,
// and hands every inbound envelope to a MessageHandler.
type Hub struct {
	peers      map[string]*Conn
	register   chan *Conn
	unregister chan *Conn
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	nextID     uint64

	cfg       Config
	upgrader  websocket.Upgrader
	onMessage MessageHandler
	metrics   *metrics.Hub
	logf      func(string, ...any)
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithHubLogger replaces log.Printf as the hub's log sink.
func WithHubLogger(logf func(string, ...any)) HubOption {
	return func(h *Hub) {
		if logf != nil {
			h.logf = logf
		}
	}
}

// WithHubMetrics records hub activity in m.
func WithHubMetrics(m *metrics.Hub) HubOption {
	return func(h *Hub) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewHub creates a hub. A nil cfg uses defaults; a nil onMessage logs each
// envelope.
func NewHub(cfg *Config, onMessage MessageHandler, opts ...HubOption) *Hub {
	base := defaultConfig()
	if cfg != nil {
		base = *cfg
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		peers:      make(map[string]*Conn),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        sanitizeConfig(base),
		onMessage:  onMessage,
		logf:       log.Printf,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.NewHub(nil)
	}
	if h.onMessage == nil {
		h.onMessage = func(peerID string, env protocol.Envelope) {
			h.logf("Received from peer %s: %s", peerID, env.Message)
		}
	}

	origins := newOriginPolicy(h.cfg.AllowedOrigins, h.logf)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}
	return h
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	cfg := h.cfg
	cfg.AllowedOrigins = append([]string(nil), h.cfg.AllowedOrigins...)
	return cfg
}

// Run starts the hub's main event loop, handling peer registration and
// unregistration. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownPeers()
			return

		case c := <-h.register:
			if c == nil {
				h.logf("Received nil peer registration; skipping")
				continue
			}
			h.addPeer(c)

		case c := <-h.unregister:
			h.removePeer(c)
		}
	}
}

func (h *Hub) addPeer(c *Conn) {
	h.nextID++
	c.id = strconv.FormatUint(h.nextID, 10)

	h.mutex.Lock()
	c.closed = false
	h.peers[c.id] = c
	peerCount := len(h.peers)
	h.mutex.Unlock()

	h.metrics.PeersConnected.Set(float64(peerCount))
	h.logf("Peer %s connected from %s. Total peers: %d", c.id, c.addr, peerCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

func (h *Hub) removePeer(c *Conn) {
	h.mutex.Lock()
	existing, ok := h.peers[c.id]
	if !ok || existing != c {
		h.mutex.Unlock()
		return
	}
	delete(h.peers, c.id)
	c.closed = true
	peerCount := len(h.peers)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(c.send)
	h.metrics.PeersConnected.Set(float64(peerCount))
	h.logf("Peer %s disconnected from %s. Total peers: %d", c.id, c.addr, peerCount)
}

// registerConn hands c to the event loop. It reports false once the hub is
// shutting down.
func (h *Hub) registerConn(c *Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterConn(c *Conn) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Broadcast wraps text in a server envelope and queues it for every
// registered peer. Peers that are gone or saturated are skipped. It returns
// the number of peers the frame was queued for.
func (h *Hub) Broadcast(text string) (int, error) {
	payload, err := protocol.Encode(protocol.NewServer(text))
	if err != nil {
		return 0, err
	}
	h.metrics.BroadcastsTotal.Inc()

	peers := h.getPeerSnapshot()
	delivered := 0
	for _, c := range peers {
		if h.safeSend(c, payload) {
			delivered++
			continue
		}
		h.metrics.BroadcastSkipped.Inc()
		h.logf("Skipping broadcast to peer %s: connection closed or send buffer full", c.id)
	}

	h.logf("Broadcast delivered to %d of %d peers", delivered, len(peers))
	return delivered, nil
}

func (h *Hub) safeSend(c *Conn, payload []byte) bool {
	// Holding the read lock keeps removePeer from closing c.send mid-send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.peers[c.id]; !exists || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// getPeerSnapshot returns a thread-safe snapshot of all current peers
func (h *Hub) getPeerSnapshot() []*Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	peers := make([]*Conn, 0, len(h.peers))
	for _, c := range h.peers {
		peers = append(peers, c)
	}
	return peers
}

// PeerCount returns the number of registered peers.
func (h *Hub) PeerCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.peers)
}

// PeerIDs returns the registered peer ids sorted by id.
func (h *Hub) PeerIDs() []string {
	h.mutex.RLock()
	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	h.mutex.RUnlock()

	slices.SortFunc(ids, func(a, b string) int {
		if n := cmp.Compare(len(a), len(b)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	return ids
}

// shutdownPeers marks every peer closed. Their write pumps observe the
// cancelled context and send a close frame.
func (h *Hub) shutdownPeers() {
	h.logf("Shutting down all peer connections...")

	h.mutex.Lock()
	count := len(h.peers)
	for id, c := range h.peers {
		c.closed = true
		delete(h.peers, id)
	}
	h.mutex.Unlock()

	h.metrics.PeersConnected.Set(0)
	h.logf("Closed %d peer connections", count)
}

// Shutdown stops the event loop and waits for every pump to exit, or until
// the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logf("Initiating hub shutdown...")

	h.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		h.logf("Hub shutdown timeout reached, event loop is not running")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logf("Hub shutdown completed successfully")
		return nil
	case <-timer.C:
		h.logf("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
