package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration: defaults overridden by
// POLLBOARD_* environment variables, optionally sourced from a .env file.
type Config struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	Session   SessionConfig
	Archive   ArchiveConfig
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WebSocketConfig struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	BufferSize   int
}

type SessionConfig struct {
	// GraceDelay is the wait after full participation before a poll
	// auto-ends.
	GraceDelay time.Duration
	// ChatHistoryLimit bounds the retained chat log.
	ChatHistoryLimit int
}

type ArchiveConfig struct {
	Path string
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         3001,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			BufferSize:   100,
		},
		Session: SessionConfig{
			GraceDelay:       time.Second,
			ChatHistoryLimit: 100,
		},
		Archive: ArchiveConfig{
			Path: "./pollboard.db",
		},
	}
}

// Load reads configuration: a .env file if present, then POLLBOARD_*
// environment overrides on top of the defaults.
func Load() *Config {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := Default()

	if host := os.Getenv("POLLBOARD_HTTP_HOST"); host != "" {
		cfg.HTTP.Host = host
	}
	if port := os.Getenv("POLLBOARD_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if d := os.Getenv("POLLBOARD_HTTP_READ_TIMEOUT"); d != "" {
		if timeout, err := time.ParseDuration(d); err == nil {
			cfg.HTTP.ReadTimeout = timeout
		}
	}
	if d := os.Getenv("POLLBOARD_HTTP_WRITE_TIMEOUT"); d != "" {
		if timeout, err := time.ParseDuration(d); err == nil {
			cfg.HTTP.WriteTimeout = timeout
		}
	}
	if d := os.Getenv("POLLBOARD_WEBSOCKET_PING_INTERVAL"); d != "" {
		if interval, err := time.ParseDuration(d); err == nil {
			cfg.WebSocket.PingInterval = interval
		}
	}
	if d := os.Getenv("POLLBOARD_WEBSOCKET_READ_TIMEOUT"); d != "" {
		if timeout, err := time.ParseDuration(d); err == nil {
			cfg.WebSocket.ReadTimeout = timeout
		}
	}
	if size := os.Getenv("POLLBOARD_WEBSOCKET_BUFFER_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			cfg.WebSocket.BufferSize = n
		}
	}
	if d := os.Getenv("POLLBOARD_POLL_GRACE_DELAY"); d != "" {
		if delay, err := time.ParseDuration(d); err == nil {
			cfg.Session.GraceDelay = delay
		}
	}
	if limit := os.Getenv("POLLBOARD_CHAT_HISTORY_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Session.ChatHistoryLimit = n
		}
	}
	if path := os.Getenv("POLLBOARD_ARCHIVE_PATH"); path != "" {
		cfg.Archive.Path = path
	}

	return cfg
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}
	if c.Session.GraceDelay <= 0 {
		return fmt.Errorf("poll grace delay must be positive")
	}
	if c.Session.ChatHistoryLimit <= 0 {
		return fmt.Errorf("chat history limit must be positive")
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("archive path cannot be empty")
	}
	return nil
}
