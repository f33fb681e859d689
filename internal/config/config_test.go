package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ModelName:           DefaultModelName,
		Endpoint:            DefaultEndpoint,
		ScreenshotTimeoutMS: 2000,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid defaults", func(*Config) {}, nil},
		{"empty endpoint allowed", func(c *Config) { c.Endpoint = "" }, nil},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"whitespace model", func(c *Config) { c.ModelName = "   " }, ErrInvalidModelName},
		{"bad endpoint scheme", func(c *Config) { c.Endpoint = "ftp://host/gen" }, ErrInvalidEndpoint},
		{"endpoint missing host", func(c *Config) { c.Endpoint = "http://" }, ErrInvalidEndpoint},
		{"bad proxy upstream", func(c *Config) { c.ProxyUpstream = "not a url" }, ErrInvalidProxyUpstream},
		{"valid proxy upstream", func(c *Config) { c.ProxyUpstream = "https://gpu-box:11434/api/generate" }, nil},
		{"negative screenshot timeout", func(c *Config) { c.ScreenshotTimeoutMS = -1 }, ErrInvalidScreenshotTimeout},
		{"huge screenshot timeout", func(c *Config) { c.ScreenshotTimeoutMS = 120000 }, ErrInvalidScreenshotTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestScreenshotTimeout(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, 2*time.Second, cfg.ScreenshotTimeout())

	cfg.ScreenshotTimeoutMS = 0
	assert.Equal(t, DefaultScreenshotTimeout, cfg.ScreenshotTimeout())

	cfg.ScreenshotTimeoutMS = 500
	assert.Equal(t, 500*time.Millisecond, cfg.ScreenshotTimeout())
}

func TestDefaultEndpoint_IsOllamaGenerate(t *testing.T) {
	t.Parallel()

	require.True(t, strings.HasSuffix(DefaultEndpoint, "/api/generate"))
}
