package config

import (
	"fmt"
	"time"
)

// RecorderConfig is the root configuration for a recorder instance.
type RecorderConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Recorder RecordConfig   `yaml:"recorder"`
}

// InstanceConfig identifies this recorder.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// APIConfig holds AscendEX API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	GroupID    int           `yaml:"group_id"` // account group, part of the route prefix
	APIKey     string        `yaml:"api_key"`  // API key ID (for x-auth-key header)
	APISecret  string        `yaml:"api_secret"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamURL returns the full group-scoped WebSocket endpoint.
func (a *APIConfig) StreamURL() string {
	return fmt.Sprintf("%s/%d/api/pro/stream", a.WSURL, a.GroupID)
}

// StreamConfig holds streaming connection manager settings.
type StreamConfig struct {
	MaxReconnects    int           `yaml:"max_reconnects"`
	ReconnectMaxWait time.Duration `yaml:"reconnect_max_wait"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
	DedupHandlers    bool          `yaml:"dedup_handlers"`
}

// DatabaseConfig holds the TimescaleDB connection for time-series data.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecordConfig holds batch recorder settings.
type RecordConfig struct {
	Symbols       []string      `yaml:"symbols"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}
