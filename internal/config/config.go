// Package config resolves client settings from, in increasing priority:
// defaults, the user config file, the project config file, a .env file,
// environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/todoapi"
)

const (
	ProjectFileName = ".tada.toml"
	DotEnvFileName  = ".env"
)

// Config holds everything the CLI needs to reach the API.
type Config struct {
	Endpoint    string        `toml:"endpoint"`
	LogLevel    string        `toml:"log_level"`
	Timeout     time.Duration `toml:"timeout"`
	MetricsAddr string        `toml:"metrics_addr"`
	Group       bool          `toml:"group"`

	// Demo runs against an in-process fake API; Endpoint is ignored.
	Demo bool `toml:"-"`
}

// files lists the optional sources read before the environment.
type files struct {
	user    string
	project string
	dotenv  string
}

func defaultFiles() files {
	var f files
	if dir, err := os.UserConfigDir(); err == nil {
		f.user = filepath.Join(dir, "tada", "config.toml")
	}
	f.project = ProjectFileName
	f.dotenv = DotEnvFileName
	return f
}

// Load resolves the configuration and parses flags from args into fs.
// Positional arguments are left in fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	return load(fs, args, defaultFiles())
}

func load(fs *flag.FlagSet, args []string, src files) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	for _, path := range []string{src.user, src.project} {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	dotenv, err := readDotEnv(src.dotenv)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.dotenv, err)
	}
	if err := loadFromEnv(cfg, lookupWith(dotenv)); err != nil {
		return nil, err
	}

	registerFlags(cfg, fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.LogLevel = logging.DefaultLevel
	cfg.Timeout = todoapi.DefaultTimeout
}

// loadFile decodes a TOML file over cfg. Missing files are skipped.
func loadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return godotenv.Read(path)
}

// lookupWith prefers the process environment and falls back to dotenv.
func lookupWith(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func loadFromEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("TADA_ENDPOINT"); ok && v != "" {
		cfg.Endpoint = v
	}
	if v, ok := lookup("TADA_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("TADA_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup("TADA_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	return nil
}

// registerFlags binds flags to cfg using the already resolved values as defaults.
func registerFlags(cfg *Config, fs *flag.FlagSet) {
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "to-do API base URL (env TADA_ENDPOINT)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.Group, "group", cfg.Group, "group ls output by pending/done")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "use an in-process demo API")
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	if !c.Demo {
		if err := todoapi.ValidateEndpoint(c.Endpoint); err != nil {
			return fmt.Errorf("endpoint: %w (set TADA_ENDPOINT, --endpoint or %s)", err, ProjectFileName)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
