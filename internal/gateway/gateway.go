package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
)

// PartKind distinguishes prompt segments.
type PartKind int

const (
	TextPart PartKind = iota
	ImagePart
)

// Part is one ordered segment of a prompt.
type Part struct {
	Kind PartKind
	Text string
	// ImageURL is an embedded data URI or a remote URL.
	ImageURL string
}

// Text returns a text prompt segment.
func Text(s string) Part { return Part{Kind: TextPart, Text: s} }

// Image returns an image prompt segment.
func Image(url string) Part { return Part{Kind: ImagePart, ImageURL: url} }

// Gateway sends one prompt to the model service and returns its raw answer.
type Gateway interface {
	Complete(ctx context.Context, parts []Part) (string, error)
}

// Config describes the chat-completion endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	// Timeout bounds a single call; zero disables the deadline.
	Timeout time.Duration
	Referer string
	Title   string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

type openAIGateway struct {
	client *openai.Client
	cfg    Config
}

// New builds a Gateway backed by an OpenAI-compatible endpoint.
func New(cfg Config) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &attributionTransport{
			base:    base,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	return &openAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

func (g *openAIGateway) Complete(ctx context.Context, parts []Part) (string, error) {
	if len(parts) == 0 {
		return "", apperrors.NewInternalError("Empty prompt", nil)
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: toMessageParts(parts),
			},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.NewMalformedUpstreamError("The model service returned an unexpected response", nil).
			WithDetails("response %q has no choices", resp.ID)
	}

	content := messageText(resp.Choices[0].Message)
	if content == "" {
		return "", apperrors.NewMalformedUpstreamError("The model service returned an unexpected response", nil).
			WithDetails("response %q has no message content", resp.ID)
	}

	logger.WithFields(logrus.Fields{
		"model":             g.cfg.Model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"finish_reason":     resp.Choices[0].FinishReason,
	}).Debug("Model call completed")

	return content, nil
}

// messageText returns the text of an answer, joining text parts when the
// provider answered with multi-part content.
func messageText(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" || len(msg.MultiContent) == 0 {
		return msg.Content
	}
	var sb strings.Builder
	for _, p := range msg.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func toMessageParts(parts []Part) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case ImagePart:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		default:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return out
}

// classify maps client errors onto the application taxonomy. Upstream bodies
// stay in Details and never reach the user-facing message.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("The model service did not respond in time", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewUpstreamError("The model service is unavailable", err).
			WithDetails("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperrors.NewUpstreamError("The model service is unavailable", err).
			WithDetails("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.NewMalformedUpstreamError("The model service returned an unexpected response", err)
	}

	return apperrors.NewUpstreamError("The model service is unavailable", err)
}
