package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type appConfig struct {
	Env      string `yaml:"env" env:"SEATLOCK_ENV" env-default:"local"`
	HTTPAddr string `yaml:"http_addr" env:"SEATLOCK_HTTP_ADDR" env-default:":8080"`

	// RedisAddr of the claim registry. Empty starts an embedded miniredis,
	// which keeps the demo self-contained.
	RedisAddr string `yaml:"redis_addr" env:"SEATLOCK_REDIS_ADDR" env-default:""`

	JWTSecret string        `yaml:"jwt_secret" env:"SEATLOCK_JWT_SECRET" env-default:"dev-secret-change-me"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"SEATLOCK_ACCESS_TTL" env-default:"1h"`

	IdleTTL         time.Duration `yaml:"idle_ttl" env:"SEATLOCK_IDLE_TTL" env-default:"0"`
	RejectUnclaimed bool          `yaml:"reject_unclaimed" env:"SEATLOCK_REJECT_UNCLAIMED" env-default:"false"`
}

// loadConfig reads a YAML file when one is named (flag takes priority over
// CONFIG_PATH), otherwise falls back to environment variables and defaults.
func loadConfig() (appConfig, error) {
	var cfg appConfig

	path := fetchConfigPath()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env config: %w", err)
	}
	return cfg, nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
