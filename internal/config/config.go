// Package config holds relplan's runtime configuration, read through viper
// from defaults, an optional config file and RELPLAN_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/matthewbaird/relplan/internal/store"
	"github.com/matthewbaird/relplan/internal/translate"
)

// EnvPrefix prefixes every environment override, e.g. RELPLAN_SERVER_PORT.
const EnvPrefix = "RELPLAN"

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// Seed loads the fixture tables at startup.
	Seed bool `mapstructure:"seed" yaml:"seed"`
	// Fixtures is an optional YAML file replacing the built-in tables.
	Fixtures string `mapstructure:"fixtures" yaml:"fixtures"`
}

type TranslateConfig struct {
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// StrictReferences rejects leaf references that are not store tables.
	StrictReferences bool `mapstructure:"strict_references" yaml:"strict_references"`
}

// Config is the full configuration tree.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Translate TranslateConfig `mapstructure:"translate" yaml:"translate"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("store.dsn", store.DefaultDSN)
	v.SetDefault("store.seed", true)
	v.SetDefault("store.fixtures", "")
	v.SetDefault("translate.max_depth", translate.DefaultMaxDepth)
	v.SetDefault("translate.strict_references", true)
}

// BindEnv enables RELPLAN_* overrides plus the legacy PORT and DATABASE_URL
// variables.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return err
	}
	return v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DATABASE_URL")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoderCfg := func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
	if err := v.Unmarshal(cfg, decoderCfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Translate.MaxDepth < 0 {
		return fmt.Errorf("translate.max_depth must not be negative, got %d", c.Translate.MaxDepth)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
