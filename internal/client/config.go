package client

import (
	"time"

	"github.com/Tyrowin/wsrelay/internal/protocol"
)

// Config holds the reconnecting peer settings. Zero values are replaced with
// defaults.
type Config struct {
	URL              string
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	SendTimeout      time.Duration
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PongTimeout      time.Duration
	WriteWait        time.Duration
	Greeting         string
}

const (
	defaultInitialBackoff   = 2 * time.Second
	defaultMaxBackoff       = 60 * time.Second
	defaultSendTimeout      = 3 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultPongTimeout      = 10 * time.Second
	defaultWriteWait        = 10 * time.Second
)

// NewConfig returns defaults for dialing url.
func NewConfig(url string) Config {
	return sanitizeConfig(Config{URL: url})
}

func sanitizeConfig(cfg Config) Config {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.Greeting == "" {
		cfg.Greeting = protocol.Greeting
	}
	return cfg
}
