package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Serve holds settings for the ingest server.
type Serve struct {
	Host    string `env:"RECSYNC_HOST" envDefault:"localhost"`
	Port    int    `env:"RECSYNC_PORT" envDefault:"8035"`
	DataDir string `env:"RECSYNC_DATA_DIR" envDefault:"data"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServe reads the serve settings from the environment.
func LoadServe() (Serve, error) {
	var cfg Serve
	if err := ParseEnv(&cfg); err != nil {
		return Serve{}, err
	}
	return cfg, nil
}

// Validate checks the port range and data dir.
func (s Serve) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	return nil
}

// Addr returns host:port.
func (s Serve) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
