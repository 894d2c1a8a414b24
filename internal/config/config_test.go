package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.HTTP.Port != 3001 {
		t.Errorf("Expected default port 3001, got %d", cfg.HTTP.Port)
	}
	if cfg.Session.GraceDelay != time.Second {
		t.Errorf("Expected 1s grace delay, got %v", cfg.Session.GraceDelay)
	}
	if cfg.Session.ChatHistoryLimit != 100 {
		t.Errorf("Expected chat history limit 100, got %d", cfg.Session.ChatHistoryLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("POLLBOARD_HTTP_HOST", "127.0.0.1")
	t.Setenv("POLLBOARD_HTTP_PORT", "8080")
	t.Setenv("POLLBOARD_WEBSOCKET_PING_INTERVAL", "10s")
	t.Setenv("POLLBOARD_WEBSOCKET_READ_TIMEOUT", "25s")
	t.Setenv("POLLBOARD_POLL_GRACE_DELAY", "500ms")
	t.Setenv("POLLBOARD_CHAT_HISTORY_LIMIT", "50")
	t.Setenv("POLLBOARD_ARCHIVE_PATH", "/tmp/archive.db")

	cfg := Load()

	if cfg.HTTP.Host != "127.0.0.1" {
		t.Errorf("Expected host override, got %q", cfg.HTTP.Host)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.WebSocket.PingInterval != 10*time.Second {
		t.Errorf("Expected 10s ping interval, got %v", cfg.WebSocket.PingInterval)
	}
	if cfg.WebSocket.ReadTimeout != 25*time.Second {
		t.Errorf("Expected 25s read timeout, got %v", cfg.WebSocket.ReadTimeout)
	}
	if cfg.Session.GraceDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms grace delay, got %v", cfg.Session.GraceDelay)
	}
	if cfg.Session.ChatHistoryLimit != 50 {
		t.Errorf("Expected chat history limit 50, got %d", cfg.Session.ChatHistoryLimit)
	}
	if cfg.Archive.Path != "/tmp/archive.db" {
		t.Errorf("Expected archive path override, got %q", cfg.Archive.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Overridden config should validate: %v", err)
	}
}

func TestLoad_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("POLLBOARD_HTTP_PORT", "not-a-number")
	t.Setenv("POLLBOARD_WEBSOCKET_PING_INTERVAL", "soon")

	cfg := Load()

	if cfg.HTTP.Port != 3001 {
		t.Errorf("Unparseable port should keep default, got %d", cfg.HTTP.Port)
	}
	if cfg.WebSocket.PingInterval != 30*time.Second {
		t.Errorf("Unparseable interval should keep default, got %v", cfg.WebSocket.PingInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"zero read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.HTTP.WriteTimeout = 0 }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"read timeout below ping interval", func(c *Config) { c.WebSocket.ReadTimeout = 10 * time.Second }},
		{"zero buffer size", func(c *Config) { c.WebSocket.BufferSize = 0 }},
		{"zero grace delay", func(c *Config) { c.Session.GraceDelay = 0 }},
		{"zero chat limit", func(c *Config) { c.Session.ChatHistoryLimit = 0 }},
		{"empty archive path", func(c *Config) { c.Archive.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
