// Package config loads simulation settings from EMPIRE_* environment
// variables, optionally overridden by a YAML tuning file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/idle-empire/internal/gate"
)

// Config is the full configuration surface.
type Config struct {
	LogLevel   string `env:"EMPIRE_LOG_LEVEL"   envDefault:"info" yaml:"log_level"`
	DBPath     string `env:"EMPIRE_DB_PATH"     envDefault:"empire.db" yaml:"db_path"`
	CatalogDir string `env:"EMPIRE_CATALOG_DIR" yaml:"catalog_dir"`
	ArchiveDir string `env:"EMPIRE_ARCHIVE_DIR" yaml:"archive_dir"`
	TuningFile string `env:"EMPIRE_TUNING_FILE" yaml:"-"`
	Seed       int64  `env:"EMPIRE_SEED"        yaml:"seed"` // 0 = crypto randomness
	SeedDemo   bool   `env:"EMPIRE_SEED_DEMO"   envDefault:"true" yaml:"seed_demo"`

	CheckInterval       time.Duration `env:"EMPIRE_CHECK_INTERVAL"         envDefault:"30m" yaml:"check_interval"`
	EventCooldown       time.Duration `env:"EMPIRE_EVENT_COOLDOWN"         envDefault:"4h" yaml:"event_cooldown"`
	RaidCooldown        time.Duration `env:"EMPIRE_RAID_COOLDOWN"          envDefault:"6h" yaml:"raid_cooldown"`
	MaxConcurrentEvents int           `env:"EMPIRE_MAX_CONCURRENT_EVENTS"  envDefault:"1" yaml:"max_concurrent_events"`
	RaidChance          float64       `env:"EMPIRE_RAID_CHANCE"            envDefault:"0.3" yaml:"raid_chance"`
	AutoDampening       float64       `env:"EMPIRE_AUTO_DAMPENING"         envDefault:"0.7" yaml:"auto_dampening"`
	EventRetention      time.Duration `env:"EMPIRE_EVENT_RETENTION"        envDefault:"168h" yaml:"event_retention"`
	DelayedEventTTL     time.Duration `env:"EMPIRE_DELAYED_EVENT_TTL"      envDefault:"24h" yaml:"delayed_event_ttl"`
	RaidPrepMin         time.Duration `env:"EMPIRE_RAID_PREP_MIN"          envDefault:"10m" yaml:"raid_prep_min"`
	RaidPrepMax         time.Duration `env:"EMPIRE_RAID_PREP_MAX"          envDefault:"30m" yaml:"raid_prep_max"`
	AutoResolveRaids    bool          `env:"EMPIRE_AUTO_RESOLVE_RAIDS"     envDefault:"true" yaml:"auto_resolve_raids"`

	GovernorInterval  time.Duration `env:"EMPIRE_GOVERNOR_INTERVAL"   envDefault:"15m" yaml:"governor_interval"`
	GovernorActChance float64       `env:"EMPIRE_GOVERNOR_ACT_CHANCE" envDefault:"0.3" yaml:"governor_act_chance"`

	StoreTimeout time.Duration `env:"EMPIRE_STORE_TIMEOUT" envDefault:"5s" yaml:"store_timeout"`
}

// Load parses the environment, applies the tuning file if one is named,
// and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TuningFile != "" {
		if err := cfg.applyTuning(cfg.TuningFile); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with every default and no environment.
func Default() Config {
	var cfg Config
	// Defaults only; an empty environment cannot fail to parse.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// applyTuning overlays the fields present in a YAML file.
func (c *Config) applyTuning(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Validate rejects out-of-range probabilities, non-positive intervals, and
// an empty concurrency ceiling.
func (c Config) Validate() error {
	var errs []error
	for name, p := range map[string]float64{
		"raid_chance":         c.RaidChance,
		"auto_dampening":      c.AutoDampening,
		"governor_act_chance": c.GovernorActChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s %v outside [0,1]", name, p))
		}
	}
	for name, d := range map[string]time.Duration{
		"check_interval":    c.CheckInterval,
		"governor_interval": c.GovernorInterval,
		"event_retention":   c.EventRetention,
		"delayed_event_ttl": c.DelayedEventTTL,
		"store_timeout":     c.StoreTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.EventCooldown < 0 || c.RaidCooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldowns must not be negative"))
	}
	if c.MaxConcurrentEvents < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_events must be at least 1, got %d", c.MaxConcurrentEvents))
	}
	if c.RaidPrepMin < 0 || c.RaidPrepMax < c.RaidPrepMin {
		errs = append(errs, fmt.Errorf("raid prep window [%v,%v] invalid", c.RaidPrepMin, c.RaidPrepMax))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GatePolicy returns the eligibility limits.
func (c Config) GatePolicy() gate.Policy {
	return gate.Policy{
		MaxConcurrentEvents: c.MaxConcurrentEvents,
		EventCooldown:       c.EventCooldown,
		RaidCooldown:        c.RaidCooldown,
	}
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
