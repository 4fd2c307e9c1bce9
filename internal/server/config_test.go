package server

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Addr != ":3000" {
		t.Errorf("Expected default addr :3000, got %q", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("Expected all origins allowed by default, got %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 0 || cfg.RateLimit.Burst != 0 {
		t.Errorf("Expected no message size or rate limit by default, got %d and %+v", cfg.MaxMessageSize, cfg.RateLimit)
	}
	if cfg.PingPeriod >= cfg.PongWait {
		t.Errorf("Ping period %s must be shorter than pong wait %s", cfg.PingPeriod, cfg.PongWait)
	}
}

// TestSanitizeConfigFillsZeroValues verifies that a zero Config becomes usable.
func TestSanitizeConfigFillsZeroValues(t *testing.T) {
	cfg := sanitizeConfig(Config{})

	if cfg.Addr == "" || cfg.SendBufferSize <= 0 {
		t.Errorf("Expected defaults to be filled, got %+v", cfg)
	}
	if cfg.MaxMessageSize != 0 || cfg.RateLimit != (RateLimitConfig{}) {
		t.Errorf("Expected limits to stay disabled, got %d and %+v", cfg.MaxMessageSize, cfg.RateLimit)
	}
	if cfg.WriteWait <= 0 || cfg.PongWait <= 0 || cfg.PingPeriod <= 0 {
		t.Errorf("Expected timing defaults, got %+v", cfg)
	}
}

func TestSanitizeConfigLimits(t *testing.T) {
	cfg := sanitizeConfig(Config{MaxMessageSize: -1, RateLimit: RateLimitConfig{Burst: 5}})
	if cfg.MaxMessageSize != 0 {
		t.Errorf("Expected negative size to disable the limit, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("Expected burst 5 per 1s, got %+v", cfg.RateLimit)
	}

	cfg = sanitizeConfig(Config{RateLimit: RateLimitConfig{Burst: -3, RefillInterval: time.Minute}})
	if cfg.RateLimit != (RateLimitConfig{}) {
		t.Errorf("Expected negative burst to disable the limiter, got %+v", cfg.RateLimit)
	}
}

func TestSanitizeConfigClampsPingPeriod(t *testing.T) {
	cfg := sanitizeConfig(Config{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second})
	if cfg.PingPeriod != 9*time.Second {
		t.Errorf("Expected ping period 9s, got %s", cfg.PingPeriod)
	}
}

func TestSanitizeConfigCopiesOrigins(t *testing.T) {
	origins := []string{"http://a.example"}
	cfg := sanitizeConfig(Config{AllowedOrigins: origins})
	origins[0] = "mutated"
	if cfg.AllowedOrigins[0] != "http://a.example" {
		t.Errorf("Config shares the caller's slice: %v", cfg.AllowedOrigins)
	}
}

func TestJoinAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 3000, "localhost:3000"},
		{"", 8080, ":8080"},
		{"::1", 9000, "[::1]:9000"},
	}
	for _, tt := range tests {
		if got := JoinAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("JoinAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}
