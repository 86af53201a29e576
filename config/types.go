package config

import "time"

// Config is the file/env configuration of the gtaw command line tool.
type Config struct {
	Auth      AuthConfig      `mapstructure:"auth"`
	API       APIConfig       `mapstructure:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AuthConfig holds credentials. Either BearerToken or all four OAuth1 values
// must be set.
type AuthConfig struct {
	BearerToken    string `mapstructure:"bearer_token"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	AccessToken    string `mapstructure:"access_token"`
	AccessSecret   string `mapstructure:"access_secret"`
}

// APIConfig points the client at an API host.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Version   string        `mapstructure:"version"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig tunes the client-side limiter.
type RateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// CacheConfig sizes the entity cache. A negative size disables it.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// StreamConfig tunes streaming connections.
type StreamConfig struct {
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	BackfillMinutes   int           `mapstructure:"backfill_minutes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
