package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/DanielWillett/unturned-dat-language-server/internal/diagnostics"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log       LogConfig       `toml:"log"`
	Files     FilesConfig     `toml:"files"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Watch     WatchConfig     `toml:"watch"`
	Spec      SpecConfig      `toml:"spec"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type FilesConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type SchedulerConfig struct {
	InlineLimit    int           `toml:"inline_limit"`
	InlineInterval time.Duration `toml:"inline_interval"`
	Debounce       time.Duration `toml:"debounce"`
}

type WatchConfig struct {
	// Native watches workspace folders with fsnotify instead of relying on
	// the client's file change notifications.
	Native bool `toml:"native"`
}

type SpecConfig struct {
	// Path is a TOML specification database. Empty uses the built-in one.
	Path string `toml:"path"`
}

type MetricsConfig struct {
	// Address serves /metrics when set, for example "127.0.0.1:9464".
	Address string `toml:"address"`
}

func Default() *Config {
	cfg := &Config{
		Watch: WatchConfig{Native: true},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads a TOML file over the defaults. Keys the file leaves out keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	applyDefaults(cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Files.Include == nil {
		cfg.Files.Include = append([]string(nil), workspace.DefaultInclude...)
	}
	if cfg.Files.Exclude == nil {
		cfg.Files.Exclude = append([]string(nil), workspace.DefaultExclude...)
	}
	if cfg.Scheduler.InlineLimit == 0 {
		cfg.Scheduler.InlineLimit = diagnostics.DefaultInlineLimit
	}
	if cfg.Scheduler.InlineInterval == 0 {
		cfg.Scheduler.InlineInterval = diagnostics.DefaultInlineInterval
	}
	if cfg.Scheduler.Debounce == 0 {
		cfg.Scheduler.Debounce = diagnostics.DefaultDebounce
	}
}

// Validate returns every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() []error {
	var errs []error
	if _, ok := parseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("%w: log.level must be one of debug, info, warn, error, got %q", ErrInvalid, c.Log.Level))
	}
	if len(c.Files.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: files.include must not be empty", ErrInvalid))
	}
	if _, err := workspace.NewMatcher(c.Files.Include, c.Files.Exclude); err != nil {
		errs = append(errs, fmt.Errorf("%w: files: %v", ErrInvalid, err))
	}
	if c.Scheduler.InlineLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler.inline_limit must be >= 0, got %d", ErrInvalid, c.Scheduler.InlineLimit))
	}
	if c.Scheduler.InlineInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler.inline_interval must not be negative", ErrInvalid))
	}
	if c.Scheduler.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler.debounce must not be negative", ErrInvalid))
	}
	if c.Spec.Path != "" {
		if info, err := os.Stat(c.Spec.Path); err != nil || info.IsDir() {
			errs = append(errs, fmt.Errorf("%w: spec.path %q is not a readable file", ErrInvalid, c.Spec.Path))
		}
	}
	return errs
}

func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Matcher builds the matcher for the configured file globs.
func (c *Config) Matcher() (*workspace.Matcher, error) {
	return workspace.NewMatcher(c.Files.Include, c.Files.Exclude)
}

// SchedulerOptions converts the scheduler section.
func (c *Config) SchedulerOptions(matcher *workspace.Matcher) diagnostics.Options {
	return diagnostics.Options{
		InlineLimit:    c.Scheduler.InlineLimit,
		InlineInterval: c.Scheduler.InlineInterval,
		Debounce:       c.Scheduler.Debounce,
		Matcher:        matcher,
	}
}
