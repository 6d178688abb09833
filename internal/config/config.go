// Package config builds the explicit runtime configuration for threadsum.
//
// Values are resolved once at startup, lowest precedence first: built-in
// defaults, an optional threadsum.yaml, a .env file, environment variables
// (GEMINI_API_KEY and THREADSUM_*), then command-line flags applied by the
// caller. The resulting Config is passed by value to the components that need
// it; nothing reads configuration from package state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything a run needs.
type Config struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	CacheDir        string        `mapstructure:"cache_dir"`
	CacheExpiryDays int           `mapstructure:"cache_expiry"`
	UseCache        bool          `mapstructure:"use_cache"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxWorkers      int           `mapstructure:"max_workers"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Verbose         bool          `mapstructure:"verbose"`
	Quiet           bool          `mapstructure:"quiet"`
}

// ErrMissingAPIKey is returned by RequireAPIKey when no key was configured.
var ErrMissingAPIKey = fmt.Errorf("missing %s (set it in the environment or a .env file)", core.APIKeyEnvVar)

// Options controls where Load looks for its inputs.
type Options struct {
	// EnvFile is the dotenv file to load; empty means ".env" in the working directory.
	EnvFile string
	// ConfigPaths are searched for threadsum.yaml. Empty means the working
	// directory and $HOME/.config/threadsum.
	ConfigPaths []string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:           core.DefaultModel,
		CacheDir:        core.DefaultCacheDir(),
		CacheExpiryDays: core.DefaultCacheExpiryDays,
		UseCache:        true,
		UserAgent:       core.UserAgent,
		MaxWorkers:      core.MaxPageWorkers,
		RequestTimeout:  core.RequestTimeout,
	}
}

// Load resolves configuration from files and the environment.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env is normal.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("model", def.Model)
	v.SetDefault("cache_dir", def.CacheDir)
	v.SetDefault("cache_expiry", def.CacheExpiryDays)
	v.SetDefault("use_cache", def.UseCache)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("max_workers", def.MaxWorkers)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)

	v.SetConfigName("threadsum")
	v.SetConfigType("yaml")
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{"."}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".config", "threadsum"))
		}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	v.SetEnvPrefix(core.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", core.APIKeyEnvVar, core.EnvPrefix+"_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("failed to bind api key env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg.normalize(), nil
}

// normalize replaces unusable values with defaults.
func (c Config) normalize() Config {
	def := Default()
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.MaxWorkers <= 0 || c.MaxWorkers > core.MaxPageWorkers {
		c.MaxWorkers = def.MaxWorkers
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	return c
}

// RequireAPIKey reports ErrMissingAPIKey when no key is configured.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
