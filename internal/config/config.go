package config

import "github.com/caarlos0/env/v10"

// Config centralizes service configuration.
type Config struct {
	HTTPPort                 string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL              string `env:"DATABASE_URL,required"`
	RedisAddr                string `env:"REDIS_ADDR"`
	RedisPassword            string `env:"REDIS_PASSWORD"`
	RedisDB                  int    `env:"REDIS_DB" envDefault:"0"`
	BcryptCost               int    `env:"BCRYPT_COST" envDefault:"10"`
	AutosaveDedupeTTLMinutes int    `env:"AUTOSAVE_DEDUPE_TTL_MINUTES" envDefault:"10"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
