package relay

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"3000"`

	// BindAddr takes precedence over Host/Port when set.
	BindAddr string `env:"BIND_ADDR"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Version string `env:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:               3000,
		CORSAllowedOrigins: []string{"*"},
		Version:            "dev",
	}
}

func (c *Config) ListenAddr() string {
	if c.BindAddr != "" {
		return c.BindAddr
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type Option func(*Config) error

// WithEnv overlays the configuration from environment variables.
func WithEnv() Option {
	return func(c *Config) error {
		if err := env.Parse(c); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
		return nil
	}
}

func WithListenAddr(addr string) Option {
	return func(c *Config) error {
		c.BindAddr = addr
		return nil
	}
}

func WithCORSAllowedOrigins(allowedOrigins []string) Option {
	return func(c *Config) error {
		if len(allowedOrigins) > 0 {
			c.CORSAllowedOrigins = allowedOrigins
		}
		return nil
	}
}

func WithVersion(version string) Option {
	return func(c *Config) error {
		c.Version = version
		return nil
	}
}
