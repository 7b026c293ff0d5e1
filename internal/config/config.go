package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Environment        string
	LogLevel           string
	MetricsEnabled     bool
	CORSAllowOrigins   []string
	ToolNamespace      string

	Model  ModelConfig
	Image  ImageConfig
	Markup MarkupConfig
}

// ModelConfig describes the external chat-completion service.
type ModelConfig struct {
	APIKey      string
	BaseURL     string
	Name        string
	MaxTokens   int
	Temperature float32
	// Timeout bounds a single model call; zero means no deadline.
	Timeout time.Duration
	Referer string
	Title   string
}

// ImageConfig bounds upload normalization.
type ImageConfig struct {
	MaxUploadSize int64
	MaxDimension  int
	// MaxPixels bounds width*height of a source image before it is decoded.
	MaxPixels   int64
	JPEGQuality int
}

type MarkupConfig struct {
	HardWraps bool
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// IsDevelopment reports whether technical error detail may be exposed.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal in containers.
	_ = godotenv.Load()
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Host:               v.GetString("HOST"),
		Port:               v.GetString("PORT"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		MaxRequestBodySize: v.GetInt64("MAX_REQUEST_BODY_SIZE"),
		Environment:        strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		LogLevel:           v.GetString("LOG_LEVEL"),
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
		CORSAllowOrigins:   splitList(v.GetString("CORS_ALLOW_ORIGINS")),
		ToolNamespace:      strings.TrimSpace(v.GetString("TOOL_NAMESPACE")),
		Model: ModelConfig{
			APIKey:      strings.TrimSpace(v.GetString("OPENROUTER_API_KEY")),
			BaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("MODEL_BASE_URL")), "/"),
			Name:        v.GetString("MODEL_NAME"),
			MaxTokens:   v.GetInt("MODEL_MAX_TOKENS"),
			Temperature: float32(v.GetFloat64("MODEL_TEMPERATURE")),
			Timeout:     v.GetDuration("MODEL_TIMEOUT"),
			Referer:     v.GetString("APP_REFERER"),
			Title:       v.GetString("APP_TITLE"),
		},
		Image: ImageConfig{
			MaxUploadSize: v.GetInt64("MAX_UPLOAD_SIZE"),
			MaxDimension:  v.GetInt("MAX_IMAGE_DIMENSION"),
			MaxPixels:     v.GetInt64("MAX_IMAGE_PIXELS"),
			JPEGQuality:   v.GetInt("JPEG_QUALITY"),
		},
		Markup: MarkupConfig{
			HardWraps: true,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "3000")
	v.SetDefault("REQUEST_TIMEOUT", 90*time.Second)
	v.SetDefault("MAX_REQUEST_BODY_SIZE", 50*1024*1024) // 50MB
	v.SetDefault("APP_ENV", EnvProduction)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("TOOL_NAMESPACE", "menu-analysis")

	v.SetDefault("MODEL_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("MODEL_NAME", "google/gemini-flash-1.5")
	v.SetDefault("MODEL_MAX_TOKENS", 1000)
	v.SetDefault("MODEL_TEMPERATURE", 0.7)
	v.SetDefault("MODEL_TIMEOUT", 60*time.Second)
	v.SetDefault("APP_REFERER", "http://localhost:3000")
	v.SetDefault("APP_TITLE", "Ingredients Analysis Application")

	v.SetDefault("MAX_UPLOAD_SIZE", 10*1024*1024) // 10MiB
	v.SetDefault("MAX_IMAGE_DIMENSION", 1024)
	v.SetDefault("MAX_IMAGE_PIXELS", 50_000_000)
	v.SetDefault("JPEG_QUALITY", 90)
}

func (c *Config) validate() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q (got %q)", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.ToolNamespace == "" {
		return fmt.Errorf("TOOL_NAMESPACE must not be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be >= 0 (got %s)", c.Model.Timeout)
	}
	if c.Model.BaseURL == "" || c.Model.Name == "" {
		return fmt.Errorf("MODEL_BASE_URL and MODEL_NAME must not be empty")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be > 0 (got %d)", c.Model.MaxTokens)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("MODEL_TEMPERATURE must be within [0, 2] (got %v)", c.Model.Temperature)
	}
	if c.Image.MaxUploadSize <= 0 || c.Image.MaxDimension <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE and MAX_IMAGE_DIMENSION must be > 0 (got %d, %d)",
			c.Image.MaxUploadSize, c.Image.MaxDimension)
	}
	if c.Image.MaxPixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.Image.MaxPixels)
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be within [1, 100] (got %d)", c.Image.JPEGQuality)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
