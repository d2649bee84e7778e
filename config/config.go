// Package config loads sqlmap configuration from defaults, a YAML file,
// SQLMAP_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/operator"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SQLMAP_OPERATOR__CACHE_SIZE sets operator.cache_size.
const EnvPrefix = "SQLMAP_"

// DefaultFile is read when no file is given and it exists.
const DefaultFile = "sqlmap.yaml"

// Config is the complete sqlmap configuration.
type Config struct {
	Operator    operator.Config           `koanf:"operator" yaml:"operator"`
	Datasources datasource.RegistryConfig `koanf:"datasources" yaml:"datasources"`
	Owners      map[string]string         `koanf:"owners" yaml:"owners"` // merged into Datasources.Owners
	Log         LogConfig                 `koanf:"log" yaml:"log"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" yaml:"format"` // text or json
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"check-column":  "operator.check_column",
	"naming":        "operator.naming",
	"default-group": "datasources.default",
}

func defaults() map[string]any {
	d := operator.DefaultConfig()
	return map[string]any{
		"operator.compatible_with_empty_list": d.CompatibleWithEmptyList,
		"operator.check_column":               d.CheckColumn,
		"operator.cache_size":                 d.CacheSize,
		"operator.naming":                     "snake",
		"log.level":                           "info",
		"log.format":                          "text",
	}
}

// Load reads the configuration. path may be empty, in which case
// DefaultFile is used when present. flags may be nil; only flags the user
// set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.expandEnv()
	return &cfg, nil
}

// Registry returns the datasource configuration with the top-level owner
// bindings merged in. Bindings under datasources win.
func (c *Config) Registry() datasource.RegistryConfig {
	rc := c.Datasources
	owners := make(map[string]string, len(c.Owners)+len(rc.Owners))
	maps.Copy(owners, c.Owners)
	maps.Copy(owners, rc.Owners)
	rc.Owners = owners
	return rc
}

// Validate checks the datasource configuration and the log settings.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	rc := c.Registry()
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("invalid datasources: %w", err)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} in connection settings. Unset variables are
// left as written.
func (c *Config) expandEnv() {
	expand := func(s string) string {
		return envRef.ReplaceAllStringFunc(s, func(m string) string {
			if v, ok := os.LookupEnv(m[2 : len(m)-1]); ok {
				return v
			}
			return m
		})
	}
	conn := func(cfg *datasource.Config) {
		cfg.Host = expand(cfg.Host)
		cfg.Database = expand(cfg.Database)
		cfg.Username = expand(cfg.Username)
		cfg.Password = expand(cfg.Password)
	}
	for name, cc := range c.Datasources.Groups {
		conn(&cc.Primary)
		for i := range cc.Replicas {
			conn(&cc.Replicas[i])
		}
		c.Datasources.Groups[name] = cc
	}
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
