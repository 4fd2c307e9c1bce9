package client

import (
	"context"
	"time"
)

// State is the connection state of a Peer.
type State int32

// Peer states. The cycle is Disconnected, Connecting, Connected, Disconnected.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// NextBackoff doubles current, capped at limit.
func NextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next <= 0 {
		return limit
	}
	return next
}

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
