// Package server provides configuration helpers that define runtime defaults
// and per-peer limits for the hub.
package server

import (
	"net"
	"strconv"
	"time"
)

// RateLimitConfig defines the parameters for per-peer inbound rate limiting.
// A zero Burst disables the limiter.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the hub settings. Zero values are replaced with defaults,
// except MaxMessageSize and RateLimit.Burst where zero means no limit.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	SendBufferSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

const (
	defaultAddr       = ":3000"
	defaultSendBuffer = 256
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = 54 * time.Second
)

func defaultConfig() Config {
	return Config{
		Addr:           defaultAddr,
		AllowedOrigins: []string{"*"},
		SendBufferSize: defaultSendBuffer,
		WriteWait:      defaultWriteWait,
		PongWait:       defaultPongWait,
		PingPeriod:     defaultPingPeriod,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// JoinAddr builds a listen address from the host and port the operator typed.
func JoinAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	if cfg.MaxMessageSize < 0 {
		cfg.MaxMessageSize = 0
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit = RateLimitConfig{}
	} else if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBuffer
	}

	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}

	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}

	// Pings must go out before the peer's read deadline lapses.
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}
