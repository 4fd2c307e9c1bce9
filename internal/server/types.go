// Package server defines shared callback types and utility helpers that
// are reused across connection and hub logic.
package server

import (
	"strings"

	"github.com/Tyrowin/wsrelay/internal/protocol"
)

// MessageHandler receives every well-formed envelope a peer sends, tagged
// with the id the hub assigned to that peer.
type MessageHandler func(peerID string, env protocol.Envelope)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
