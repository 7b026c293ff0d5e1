package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.ServerAddress())
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxRequestBodySize)
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "menu-analysis", cfg.ToolNamespace)

	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Model.BaseURL)
	assert.Equal(t, "google/gemini-flash-1.5", cfg.Model.Name)
	assert.Equal(t, 1000, cfg.Model.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Model.Temperature, 1e-6)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "http://localhost:3000", cfg.Model.Referer)
	assert.Equal(t, "Ingredients Analysis Application", cfg.Model.Title)

	assert.Equal(t, int64(10*1024*1024), cfg.Image.MaxUploadSize)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
	assert.Equal(t, int64(50_000_000), cfg.Image.MaxPixels)
	assert.Equal(t, 90, cfg.Image.JPEGQuality)
	assert.True(t, cfg.Markup.HardWraps)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "Development")
	t.Setenv("MODEL_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("MODEL_TIMEOUT", "0s")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.ServerAddress())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:9999/v1", cfg.Model.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Model.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing api key", map[string]string{"OPENROUTER_API_KEY": ""}, "OPENROUTER_API_KEY is required"},
		{"bad port", map[string]string{"PORT": "http"}, "invalid PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "invalid PORT"},
		{"unknown env", map[string]string{"APP_ENV": "staging"}, "APP_ENV must be"},
		{"negative model timeout", map[string]string{"MODEL_TIMEOUT": "-1s"}, "MODEL_TIMEOUT"},
		{"temperature too high", map[string]string{"MODEL_TEMPERATURE": "3.5"}, "MODEL_TEMPERATURE"},
		{"zero max tokens", map[string]string{"MODEL_MAX_TOKENS": "0"}, "MODEL_MAX_TOKENS"},
		{"bad quality", map[string]string{"JPEG_QUALITY": "101"}, "JPEG_QUALITY"},
		{"zero dimension", map[string]string{"MAX_IMAGE_DIMENSION": "0"}, "MAX_IMAGE_DIMENSION"},
		{"zero pixel budget", map[string]string{"MAX_IMAGE_PIXELS": "0"}, "MAX_IMAGE_PIXELS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENROUTER_API_KEY", "sk-test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFromEnv()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
