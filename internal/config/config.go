package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	BackendBaseURL string        `koanf:"backend_base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	Currency       string        `koanf:"currency"`
	MetricsAddr    string        `koanf:"metrics_addr"`
	LogFile        string        `koanf:"log_file"`
	Debug          bool          `koanf:"debug"`
}

func Default() Config {
	return Config{
		BackendBaseURL: "http://localhost:8080",
		Timeout:        10 * time.Second,
		PollInterval:   2 * time.Second,
		Currency:       "MAD",
		LogFile:        "./vending-client.log",
		Debug:          false,
	}
}

func New() (Config, error) {
	cfg := Default()

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}
