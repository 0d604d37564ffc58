package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration, resolved once at startup and
// passed to the components that need it.
type Config struct {
	ParamPrefix         string        `env:"PARAM_PREFIX,required"`
	ForwardURL          string        `env:"FORWARD_URL,required"`
	ForwardTimeout      time.Duration `env:"FORWARD_TIMEOUT"        envDefault:"10s"`
	CommandPrefix       string        `env:"COMMAND_PREFIX"         envDefault:"/log"`
	LineAPIBaseURL      string        `env:"LINE_API_BASE_URL"      envDefault:"https://api.line.me"`
	LedgerTable         string        `env:"LEDGER_TABLE"`
	LedgerTTL           time.Duration `env:"LEDGER_TTL"             envDefault:"72h"`
	MaxConcurrentEvents int           `env:"MAX_CONCURRENT_EVENTS"  envDefault:"10"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value environment instead of os.Environ.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	c.ParamPrefix = strings.TrimRight(strings.TrimSpace(c.ParamPrefix), "/")
	if c.ParamPrefix == "" {
		return errors.New("config: PARAM_PREFIX must not be empty")
	}
	u, err := url.Parse(strings.TrimSpace(c.ForwardURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: FORWARD_URL %q is not an absolute URL", c.ForwardURL)
	}
	if c.ForwardTimeout <= 0 {
		return errors.New("config: FORWARD_TIMEOUT must be positive")
	}
	c.CommandPrefix = strings.TrimSpace(c.CommandPrefix)
	if c.CommandPrefix == "" {
		return errors.New("config: COMMAND_PREFIX must not be empty")
	}
	if c.LedgerTTL <= 0 {
		return errors.New("config: LEDGER_TTL must be positive")
	}
	if c.MaxConcurrentEvents < 0 {
		return errors.New("config: MAX_CONCURRENT_EVENTS must not be negative")
	}
	return nil
}

// LedgerEnabled reports whether redelivered events are deduplicated.
func (c Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.LedgerTable) != ""
}
