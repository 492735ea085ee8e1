package config

import (
	"os"
	"strconv"
)

// SocketConfig holds WebSocket server configuration.
type SocketConfig struct {
	MaxConnections  int `json:"max_connections"`
	PingInterval    int `json:"ping_interval_seconds"`
	WriteTimeout    int `json:"write_timeout_seconds"`
	ReadBufferSize  int `json:"read_buffer_size"`
	WriteBufferSize int `json:"write_buffer_size"`
	SendBufferSize  int `json:"send_buffer_size"` // per-client outbound queue depth
}

// DefaultSocketConfig returns the default WebSocket configuration.
func DefaultSocketConfig() *SocketConfig {
	return &SocketConfig{
		MaxConnections:  1000,
		PingInterval:    30,
		WriteTimeout:    10,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
	}
}

// SocketConfigFromEnv loads WebSocket tuning from the environment, falling
// back to defaults for missing values.
func SocketConfigFromEnv() *SocketConfig {
	cfg := DefaultSocketConfig()
	if v := envInt("WS_READ_BUFFER"); v > 0 {
		cfg.ReadBufferSize = v
	}
	if v := envInt("WS_WRITE_BUFFER"); v > 0 {
		cfg.WriteBufferSize = v
	}
	if v := envInt("WS_SEND_BUFFER"); v > 0 {
		cfg.SendBufferSize = v
	}
	if v := envInt("WS_MAX_CONNECTIONS"); v > 0 {
		cfg.MaxConnections = v
	}
	return cfg
}

// ServerConfig holds the HTTP server and store settings.
type ServerConfig struct {
	Port  int    // listen port, default 8080
	DBDSN string // MySQL DSN; empty means run on the in-memory store
}

// ServerConfigFromEnv loads server configuration from environment variables.
func ServerConfigFromEnv() *ServerConfig {
	cfg := &ServerConfig{Port: 8080}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	cfg.DBDSN = os.Getenv("DB_DSN")
	return cfg
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
