// Package config loads the settings of the gtaw command from a YAML file,
// .env files and GTAW_ prefixed environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	gtaw "github.com/jamesprial/go-twitter-api-wrapper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GTAW"

// Well-known variable names accepted next to the GTAW_ ones.
var aliases = map[string]string{
	"auth.bearer_token":    "TWITTER_BEARER_TOKEN",
	"auth.consumer_key":    "TWITTER_CONSUMER_KEY",
	"auth.consumer_secret": "TWITTER_CONSUMER_SECRET",
	"auth.access_token":    "TWITTER_ACCESS_TOKEN",
	"auth.access_secret":   "TWITTER_ACCESS_SECRET",
}

// Load reads the configuration. configPath may be empty, in which case
// config.yaml is looked up in the working directory and ~/.gtaw and a missing
// file is not an error. envFiles are loaded into the process environment
// first without overriding variables that are already set; when none are
// given, ./.env is tried.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gtaw"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	explicit := len(files) > 0
	if !explicit {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err == nil {
			continue
		}
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("loading %s: %w", f, err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs one so that
// AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	for key := range aliases {
		v.SetDefault(key, "")
	}

	v.SetDefault("api.base_url", gtaw.DefaultBaseURL)
	v.SetDefault("api.version", gtaw.DefaultAPIVersion)
	v.SetDefault("api.user_agent", "gtaw-cli/1.0")
	v.SetDefault("api.timeout", gtaw.DefaultTimeout)

	v.SetDefault("rate_limit.requests_per_minute", 0)
	v.SetDefault("rate_limit.burst", 0)

	v.SetDefault("cache.size", 0)
	v.SetDefault("cache.ttl", 0)

	v.SetDefault("stream.connect_retry_delay", 0)
	v.SetDefault("stream.connect_retries", 0)
	v.SetDefault("stream.reconnect_delay", 0)
	v.SetDefault("stream.max_reconnects", 0)
	v.SetDefault("stream.backfill_minutes", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	a := cfg.Auth
	oauth := []string{a.ConsumerKey, a.ConsumerSecret, a.AccessToken, a.AccessSecret}
	set := 0
	for _, s := range oauth {
		if s != "" {
			set++
		}
	}
	if set != 0 && set != len(oauth) {
		return fmt.Errorf("auth: consumer_key, consumer_secret, access_token and access_secret must be set together")
	}
	if a.BearerToken == "" && set == 0 {
		return fmt.Errorf("auth: bearer_token or the OAuth1 credentials are required")
	}

	if cfg.Stream.BackfillMinutes < 0 || cfg.Stream.BackfillMinutes > 5 {
		return fmt.Errorf("stream.backfill_minutes must be between 0 and 5, got %d", cfg.Stream.BackfillMinutes)
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ClientConfig converts cfg into a client configuration. logger may be nil.
func (cfg *Config) ClientConfig(logger *slog.Logger) *gtaw.Config {
	out := &gtaw.Config{
		BearerToken:    cfg.Auth.BearerToken,
		ConsumerKey:    cfg.Auth.ConsumerKey,
		ConsumerSecret: cfg.Auth.ConsumerSecret,
		AccessToken:    cfg.Auth.AccessToken,
		AccessSecret:   cfg.Auth.AccessSecret,
		UserAgent:      cfg.API.UserAgent,
		BaseURL:        cfg.API.BaseURL,
		APIVersion:     cfg.API.Version,
		Logger:         logger,
		CacheSize:      cfg.Cache.Size,
		CacheTTL:       cfg.Cache.TTL,
		Stream: gtaw.StreamConfig{
			ConnectRetryDelay: cfg.Stream.ConnectRetryDelay,
			ConnectRetries:    cfg.Stream.ConnectRetries,
			ReconnectDelay:    cfg.Stream.ReconnectDelay,
			MaxReconnects:     cfg.Stream.MaxReconnects,
		},
	}
	// With user credentials present the bearer token is dropped so that
	// NewClient sees exactly one credential set.
	if cfg.Auth.ConsumerKey != "" {
		out.BearerToken = ""
	}
	if cfg.API.Timeout > 0 {
		out.HTTPClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		out.RateLimit = &gtaw.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}
	}
	return out
}
