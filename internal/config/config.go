// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sketchrun/config.yaml)
//  3. Default values
//
// Unlike most settings, the model name and generation endpoint are also
// written back at runtime: the settings UI persists them through Save,
// and concurrent writers are serialized with an advisory file lock.
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEndpoint indicates the generation endpoint URL is malformed.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidScreenshotTimeout indicates the screenshot timeout is out of range.
	ErrInvalidScreenshotTimeout = errors.New("invalid screenshot timeout")

	// ErrInvalidProxyUpstream indicates the proxy upstream URL is malformed.
	ErrInvalidProxyUpstream = errors.New("invalid proxy upstream")
)

const (
	// DefaultModelName is the vision model used when none is configured.
	DefaultModelName = "qwen2.5:7b"

	// DefaultEndpoint is the Ollama generate endpoint on a local install.
	DefaultEndpoint = "http://localhost:11434/api/generate"

	// DefaultScreenshotTimeout bounds how long a screenshot export waits
	// for the embedded renderer to answer.
	DefaultScreenshotTimeout = 2 * time.Second

	// MaxScreenshotTimeout is the upper bound accepted from configuration.
	MaxScreenshotTimeout = 30 * time.Second
)

// Config stores application configuration.
type Config struct {
	// Generation configuration
	ModelName string `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "qwen2.5:7b", "llava:13b")
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`     // Full URL of the generate endpoint

	// ProxyUpstream is the server-side URL the pass-through proxy route
	// forwards to. Empty disables the proxy route.
	ProxyUpstream string `mapstructure:"proxy_upstream" json:"proxy_upstream"`

	// ScreenshotTimeoutMS is the screenshot export window in milliseconds.
	ScreenshotTimeoutMS int `mapstructure:"screenshot_timeout_ms" json:"screenshot_timeout_ms"`

	// Security configuration (serve mode only)
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)

	// Observability configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// ScreenshotTimeout returns the configured export window as a duration.
func (c *Config) ScreenshotTimeout() time.Duration {
	if c.ScreenshotTimeoutMS <= 0 {
		return DefaultScreenshotTimeout
	}
	return time.Duration(c.ScreenshotTimeoutMS) * time.Millisecond
}

// Dir returns the configuration directory, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".sketchrun")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing configuration file is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// Save persists the configuration to the config file.
//
// The settings UI calls this whenever the user changes the model or the
// endpoint, so concurrent serve processes may race on the file. An
// advisory flock serializes writers; readers pick up changes on next Load.
func Save(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	configDir, err := Dir()
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(configDir, "config.lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking config file: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release config lock", "error", err)
		}
	}()

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("model_name", cfg.ModelName)
	v.Set("endpoint", cfg.Endpoint)
	v.Set("proxy_upstream", cfg.ProxyUpstream)
	v.Set("screenshot_timeout_ms", cfg.ScreenshotTimeoutMS)
	v.Set("cors_origins", cfg.CORSOrigins)
	v.Set("trust_proxy", cfg.TrustProxy)
	v.Set("tracing.enabled", cfg.Tracing.Enabled)
	v.Set("tracing.otlp_endpoint", cfg.Tracing.OTLPEndpoint)
	v.Set("tracing.environment", cfg.Tracing.Environment)
	v.Set("tracing.service_name", cfg.Tracing.ServiceName)

	path := filepath.Join(configDir, "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid values (fail-fast).
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	// An empty endpoint is allowed at load time: generation fails fast
	// with a configuration error until the user sets one via settings.
	if c.Endpoint != "" {
		if err := validateHTTPURL(c.Endpoint); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
		}
	}

	if c.ProxyUpstream != "" {
		if err := validateHTTPURL(c.ProxyUpstream); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProxyUpstream, err)
		}
	}

	if c.ScreenshotTimeoutMS < 0 ||
		time.Duration(c.ScreenshotTimeoutMS)*time.Millisecond > MaxScreenshotTimeout {
		return fmt.Errorf("%w: must be between 0 and %d ms",
			ErrInvalidScreenshotTimeout, MaxScreenshotTimeout.Milliseconds())
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("endpoint", DefaultEndpoint)
	viper.SetDefault("proxy_upstream", "")
	viper.SetDefault("screenshot_timeout_ms", int(DefaultScreenshotTimeout.Milliseconds()))

	// CORS defaults (canvas dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Proxy trust (default: false — safe for direct exposure)
	viper.SetDefault("trust_proxy", false)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "sketchrun")
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a bug in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "SKETCHRUN_MODEL_NAME")
	mustBind("endpoint", "SKETCHRUN_ENDPOINT")
	mustBind("proxy_upstream", "SKETCHRUN_PROXY_UPSTREAM")
	mustBind("screenshot_timeout_ms", "SKETCHRUN_SCREENSHOT_TIMEOUT_MS")
	mustBind("cors_origins", "SKETCHRUN_CORS_ORIGINS")
	mustBind("trust_proxy", "SKETCHRUN_TRUST_PROXY")
	mustBind("tracing.enabled", "SKETCHRUN_TRACING_ENABLED")
	mustBind("tracing.otlp_endpoint", "SKETCHRUN_OTLP_ENDPOINT")
}
