package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogPretty         bool          `mapstructure:"log_pretty" yaml:"log_pretty"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `mapstructure:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	TypingIdleTimeout time.Duration `mapstructure:"typing_idle_timeout" yaml:"typing_idle_timeout"`
	AssistantDelay    time.Duration `mapstructure:"assistant_delay" yaml:"assistant_delay"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DatabasePath:      "hallway.db",
		LogLevel:          "info",
		LogPretty:         true,
		JWTSecret:         "change-me",
		JWTIssuer:         "hallway",
		JWTAudience:       "hallway-clients",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   12 * time.Hour,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		TypingIdleTimeout: 10 * time.Second,
		AssistantDelay:    600 * time.Millisecond,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.AccessTokenTTL != 0 {
		c.AccessTokenTTL = other.AccessTokenTTL
	}
	if other.RefreshTokenTTL != 0 {
		c.RefreshTokenTTL = other.RefreshTokenTTL
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.TypingIdleTimeout != 0 {
		c.TypingIdleTimeout = other.TypingIdleTimeout
	}
	if other.AssistantDelay != 0 {
		c.AssistantDelay = other.AssistantDelay
	}
}
