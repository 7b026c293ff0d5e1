package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"go-ingredient-analyzer/internal/config"
	"go-ingredient-analyzer/internal/gateway"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/markup"
	"go-ingredient-analyzer/internal/normalizer"
	"go-ingredient-analyzer/internal/observer"
	"go-ingredient-analyzer/internal/service"
	"go-ingredient-analyzer/internal/transport"
)

// Version is reported by the MCP tool server.
const Version = "1.0.0"

// Container holds all application dependencies
type Container struct {
	config                *config.Config
	gateway               gateway.Gateway
	normalizer            normalizer.ImageNormalizer
	menuAnalysisService   service.MenuAnalysisService
	ingredientInfoService service.IngredientInfoService
	toolSSE               *server.SSEServer
	handler               http.Handler
}

// NewContainer builds the dependency graph from cfg. A nil gw selects the
// OpenAI-compatible gateway described by cfg.Model.
func NewContainer(cfg *config.Config, gw gateway.Gateway) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if gw == nil {
		var err error
		gw, err = gateway.New(gateway.Config{
			APIKey:      cfg.Model.APIKey,
			BaseURL:     cfg.Model.BaseURL,
			Model:       cfg.Model.Name,
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
			Timeout:     cfg.Model.Timeout,
			Referer:     cfg.Model.Referer,
			Title:       cfg.Model.Title,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model gateway: %w", err)
		}
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	if cfg.MetricsEnabled {
		events.Subscribe(observer.NewMetricsObserver())
	}

	renderer := markup.NewRenderer(markup.Options{HardWraps: cfg.Markup.HardWraps})
	imageNormalizer := normalizer.NewImageNormalizer(normalizer.Options{
		MaxDimension: cfg.Image.MaxDimension,
		MaxFileSize:  cfg.Image.MaxUploadSize,
		MaxPixels:    cfg.Image.MaxPixels,
		JPEGQuality:  cfg.Image.JPEGQuality,
	})

	menu := service.NewMenuAnalysisService(gw, renderer, events)
	info := service.NewIngredientInfoService(gw, renderer, events)
	toolSSE := transport.NewSSEHandler(transport.NewToolServer(menu, info, Version))

	handler := transport.NewHandler(transport.Dependencies{
		Config:     cfg,
		Normalizer: imageNormalizer,
		Menu:       menu,
		Info:       info,
		Tools:      toolSSE,
	})

	return &Container{
		config:                cfg,
		gateway:               gw,
		normalizer:            imageNormalizer,
		menuAnalysisService:   menu,
		ingredientInfoService: info,
		toolSSE:               toolSSE,
		handler:               handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Shutdown closes open MCP sessions.
func (c *Container) Shutdown(ctx context.Context) error {
	return c.toolSSE.Shutdown(ctx)
}
