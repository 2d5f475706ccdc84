// Package config loads runtime settings for the chat relay from the
// environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogConfig selects logger level, encoding and optional rotating file.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Config holds the server configuration.
type Config struct {
	Host              string
	Port              int
	HeartbeatInterval time.Duration
	SendQueueSize     int
	MaxMessageSize    int64
	AllowedOrigins    []string
	ShutdownTimeout   time.Duration
	Log               LogConfig
}

var errInvalid = errors.New("config: invalid value")

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3000)
	v.SetDefault("heartbeat_interval", "30s")
	v.SetDefault("send_queue_size", 256)
	v.SetDefault("max_message_size", 100<<20)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("config_file", "")
}

// Load reads defaults, then CONFIG_FILE if set, then environment overrides.
// Nested keys map to env vars with dots replaced by underscores, so
// log.level is read from LOG_LEVEL.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := &Config{
		Host:              v.GetString("host"),
		Port:              v.GetInt("port"),
		HeartbeatInterval: v.GetDuration("heartbeat_interval"),
		SendQueueSize:     v.GetInt("send_queue_size"),
		MaxMessageSize:    v.GetInt64("max_message_size"),
		AllowedOrigins:    parseOrigins(v.Get("allowed_origins")),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", errInvalid, c.Port)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive, got %v", errInvalid, c.HeartbeatInterval)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("%w: send_queue_size must be positive, got %d", errInvalid, c.SendQueueSize)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max_message_size must be positive, got %d", errInvalid, c.MaxMessageSize)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive, got %v", errInvalid, c.ShutdownTimeout)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format must be json or console, got %q", errInvalid, c.Log.Format)
	}
	return nil
}

// parseOrigins accepts a comma separated string (env) or a list (file).
func parseOrigins(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
