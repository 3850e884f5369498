package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Prefix = "KRUTAGIDON_"

type Config struct {
	APIBase string `env:"API_BASE" envDefault:"http://localhost:5001"`
	WSURL   string `env:"WS_URL" envDefault:"ws://localhost:5001/ws"`

	// PromptTimeout applies to every interaction kind listed in
	// PromptTimeoutKinds. Zero disables auto-resolution.
	PromptTimeout      time.Duration `env:"PROMPT_TIMEOUT" envDefault:"30s"`
	PromptTimeoutKinds []string      `env:"PROMPT_TIMEOUT_KINDS" envSeparator:"," envDefault:"attackTarget,defense,discardDestruction,topDeckChoice"`
	NotificationTTL    time.Duration `env:"NOTIFICATION_TTL" envDefault:"3s"`

	BridgeAddr string `env:"BRIDGE_ADDR" envDefault:"127.0.0.1:7070"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	StoreDSN    string `env:"STORE_DSN" envDefault:"krutagidon.db"`

	Locale   string `env:"LOCALE" envDefault:"en"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ReconnectInitial    time.Duration `env:"RECONNECT_INITIAL" envDefault:"500ms"`
	ReconnectMax        time.Duration `env:"RECONNECT_MAX" envDefault:"15s"`
	ReconnectMaxElapsed time.Duration `env:"RECONNECT_MAX_ELAPSED" envDefault:"5m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads an optional dotenv file and then parses the environment.
// A missing dotenv file is not an error.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := url.ParseRequestURI(c.APIBase); err != nil {
		return fmt.Errorf("api base: %w", err)
	}
	u, err := url.ParseRequestURI(c.WSURL)
	if err != nil {
		return fmt.Errorf("ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("ws url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.PromptTimeout < 0 {
		return fmt.Errorf("prompt timeout must not be negative")
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("reconnect intervals: initial %s, max %s", c.ReconnectInitial, c.ReconnectMax)
	}
	return nil
}
