// Package server implements the broadcast hub side of the relay.
//
// The implementation is organized into specialized files for configuration,
// hub management, per-peer connections, routing, and HTTP handlers. Peers
// connect over WebSocket, each gets an opaque id, operator broadcasts fan out
// to all of them, and inbound envelopes are handed to a MessageHandler.
package server
