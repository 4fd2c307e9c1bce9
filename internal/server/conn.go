// Package server manages individual peer connections, handling read/write
// pumps, rate limiting, and lifecycle control for each one.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/protocol"
)

// Conn is one registered peer as seen by the hub.
type Conn struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	closed      bool
	rateLimiter *rateLimiter
}

func newConn(ws *websocket.Conn, h *Hub, addr string) *Conn {
	if ws != nil && h.cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(h.cfg.MaxMessageSize)
	}
	c := &Conn{
		conn: ws,
		send: make(chan []byte, h.cfg.SendBufferSize),
		hub:  h,
		addr: addr,
	}
	if h.cfg.RateLimit.Burst > 0 {
		c.rateLimiter = newRateLimiter(h.cfg.RateLimit)
	}
	return c
}

// ID returns the identifier assigned at registration.
func (c *Conn) ID() string { return c.id }

// Addr returns the remote address of the peer.
func (c *Conn) Addr() string { return c.addr }

func (c *Conn) setupReadConnection() {
	pongWait := c.hub.cfg.PongWait
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logf("Error setting initial read deadline for peer %s: %v", c.id, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError classifies the error that ended the read loop.
func (c *Conn) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.hub.logf("Message from peer %s exceeded maximum size of %d bytes", c.id, c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.hub.logf("Peer %s (%s) disconnected: %v", c.id, c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.hub.logf("Peer %s (%s) connection closed: %v", c.id, c.addr, err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.hub.logf("Unexpected WebSocket error from peer %s: %v", c.id, err)
	default:
		c.hub.logf("WebSocket read error from peer %s: %v", c.id, err)
	}
}

// handleFrame decodes one inbound frame and hands it to the hub callback.
// Bad frames are logged and dropped without touching the connection.
func (c *Conn) handleFrame(raw []byte) bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.hub.metrics.MessagesRateLimited.Inc()
		c.hub.logf("Rate limit exceeded for peer %s (%d messages per %s); discarding message",
			c.id, c.hub.cfg.RateLimit.Burst, c.hub.cfg.RateLimit.RefillInterval)
		return false
	}

	env, err := protocol.Decode(raw)
	if err != nil {
		c.hub.metrics.MessagesMalformed.Inc()
		c.hub.logf("Invalid message format from peer %s: %v", c.id, err)
		return false
	}

	c.hub.metrics.MessagesReceived.Inc()
	c.hub.onMessage(c.id, env)
	return true
}

func (c *Conn) readPump() {
	defer func() {
		c.hub.unregisterConn(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.hub.logf("Error closing connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			c.hub.logf("Ignoring non-text frame from peer %s", c.id)
			continue
		}
		c.handleFrame(raw)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Conn) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.writeControl(websocket.PingMessage, nil)
	case <-c.hub.ctx.Done():
		return c.writeCloseMessage()
	}
}

func (c *Conn) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.hub.logf("Error closing connection in writePump: %v", err)
	}
}

func (c *Conn) writeCloseMessage() bool {
	c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return false
}

func (c *Conn) writeControl(messageType int, data []byte) bool {
	deadline := time.Now().Add(c.hub.cfg.WriteWait)
	if err := c.conn.WriteControl(messageType, data, deadline); err != nil {
		if !isExpectedCloseError(err) {
			c.hub.logf("Error writing control frame to peer %s: %v", c.id, err)
		}
		return false
	}
	return true
}

// writeTextMessage writes exactly one envelope per frame.
func (c *Conn) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
		c.hub.logf("Error setting write deadline for peer %s: %v", c.id, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.hub.logf("Error writing message to peer %s: %v", c.id, err)
		return false
	}
	return true
}
