// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ServeWS handles WebSocket upgrade requests. It validates that the request
// uses the GET method, upgrades the HTTP connection, and registers the new
// peer with the hub, which starts its read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("WebSocket upgrade failed: %v", err)
		return
	}

	c := newConn(ws, h, r.RemoteAddr)
	if !h.registerConn(c) {
		h.logf("Rejecting %s: hub is shutting down", r.RemoteAddr)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub shutting down"),
			time.Now().Add(h.cfg.WriteWait))
		_ = ws.Close()
	}
}

// HealthHandler reports that the hub is up and how many peers it holds.
func (h *Hub) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "wsrelay hub is running with %d peers", h.PeerCount())
}

// RootHandler upgrades WebSocket requests and serves the health line otherwise.
func (h *Hub) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.ServeWS(w, r)
		return
	}
	h.HealthHandler(w, r)
}
