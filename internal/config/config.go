// Package config describes which lexicons a lexidx process serves and how.
//
// Configuration is persisted as a versioned JSON envelope:
//
//	{"version": 1, "config": { ... }}
//
// Validation here is structural: non-empty unique names, usable paths,
// parseable cron expressions and log levels. Whether a lexicon file can
// actually be loaded is only known when the index loads it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lexidx/internal/logging"

	"github.com/go-co-op/gocron/v2"
)

const (
	DefaultAddr = ":4570"

	// Default rate limit for expensive procedures (Export, Reload).
	DefaultRateLimit = 2.0
	DefaultRateBurst = 4
)

// Config is the full process configuration.
type Config struct {
	Lexicons []LexiconConfig `json:"lexicons,omitempty"`

	// Discover lists glob patterns ("**" supported). Every matching file is
	// served as a lexicon named after the file, using DiscoverDefaults.
	Discover         []string      `json:"discover,omitempty"`
	DiscoverDefaults LexiconConfig `json:"discoverDefaults,omitzero"`

	Server ServerConfig `json:"server,omitzero"`
	Log    LogConfig    `json:"log,omitzero"`
}

// LexiconConfig describes one served lexicon.
type LexiconConfig struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Strict fails loads of files that end inside a record.
	Strict bool `json:"strict,omitempty"`

	// Watch reloads the lexicon when its file changes.
	Watch bool `json:"watch,omitempty"`

	// ReloadCron reloads on a schedule. 5-field (minute) or 6-field (second)
	// cron syntax, e.g. "0 3 * * *".
	ReloadCron string `json:"reloadCron,omitempty"`
}

// ServerConfig holds the query service settings.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`

	// RateLimit is requests per second per client IP for Export and
	// Reload. Zero uses DefaultRateLimit; negative disables limiting.
	RateLimit float64 `json:"rateLimit,omitempty"`
	RateBurst int     `json:"rateBurst,omitempty"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text or json

	// Components overrides the level per component, e.g. {"server": "debug"}.
	Components map[string]string `json:"components,omitempty"`
}

// WithDefaults returns a copy of c with empty settings filled in.
func (c Config) WithDefaults() Config {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return c
}

// Validate checks the configuration and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Lexicons))
	for i, lc := range c.Lexicons {
		if lc.Name == "" {
			errs = append(errs, fmt.Errorf("lexicons[%d]: name is required", i))
		} else if seen[lc.Name] {
			errs = append(errs, fmt.Errorf("lexicons[%d]: duplicate name %q", i, lc.Name))
		}
		seen[lc.Name] = true

		if strings.TrimSpace(lc.Path) == "" {
			errs = append(errs, fmt.Errorf("lexicon %q: path is required", lc.Name))
		}
		if err := lc.ValidateCron(); err != nil {
			errs = append(errs, fmt.Errorf("lexicon %q: %w", lc.Name, err))
		}
	}
	if err := c.DiscoverDefaults.ValidateCron(); err != nil {
		errs = append(errs, fmt.Errorf("discoverDefaults: %w", err))
	}
	if len(c.Lexicons) == 0 && len(c.Discover) == 0 {
		errs = append(errs, errors.New("no lexicons configured"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	for comp, lv := range c.Log.Components {
		if _, err := logging.ParseLevel(lv); err != nil {
			errs = append(errs, fmt.Errorf("log.components[%s]: %w", comp, err))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server.rateBurst must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateCron checks whether ReloadCron contains a valid cron expression.
// Supports both 5-field (minute-level) and 6-field (second-level) syntax.
func (lc LexiconConfig) ValidateCron() error {
	if lc.ReloadCron == "" {
		return nil
	}
	cr := gocron.NewDefaultCron(true)
	if err := cr.IsValid(lc.ReloadCron, time.UTC, time.Now()); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
