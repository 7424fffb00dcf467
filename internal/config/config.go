package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"4000"`
	AppEnv          string        `env:"APP_ENV" envDefault:"production"`
	DBDriver        string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"database.sqlite"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSweep    time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"0s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1000000"`
	MaxImportItems  int           `env:"MAX_IMPORT_ITEMS" envDefault:"1000"`
	LoginMaxAttempt int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow     time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normaliza y revisa valores que env no puede expresar con tags.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.SessionSweep < 0 {
		c.SessionSweep = 0
	}
	return nil
}

// IsDevelopment indica si el logger debe usar la configuración de desarrollo.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development") || strings.EqualFold(c.AppEnv, "dev")
}
