package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/extractor"
	"go-ingredient-analyzer/internal/gateway"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/markup"
	"go-ingredient-analyzer/internal/observer"
	"go-ingredient-analyzer/pkg/models"
)

const menuPrompt = `This is a photo of a product's ingredient list. Identify every ingredient and return the result in exactly this JSON format: {"ingredients": ["ingredient 1", "ingredient 2", ...]}. The answer must be a string that a strict JSON parser can read.`

const menuErrorPrefix = "Ingredient analysis failed: "

// FallbackIngredients is returned when the model answer holds no JSON object.
var FallbackIngredients = []string{
	"Example ingredient 1",
	"Example ingredient 2",
	"Example ingredient 3",
}

var ingredientListSchema = extractor.Schema{
	Required:    []string{"ingredients"},
	StringArray: "ingredients",
}

// MenuAnalysis is the outcome of reading an ingredient label.
type MenuAnalysis struct {
	// Outcome is extractor.Success or extractor.Fallback.
	Outcome     extractor.Outcome
	Ingredients models.IngredientList
	// Result is the JSON text of the ingredient object.
	Result string
	HTML   string
}

// MenuAnalysisService extracts the ingredient list from a label photo.
type MenuAnalysisService interface {
	AnalyzeImage(ctx context.Context, imageData string) (*MenuAnalysis, error)
}

type menuAnalysisService struct {
	gateway  gateway.Gateway
	renderer markup.Renderer
	events   events
}

// NewMenuAnalysisService creates a new menu analysis service
func NewMenuAnalysisService(gw gateway.Gateway, renderer markup.Renderer, subject observer.Subject) MenuAnalysisService {
	return &menuAnalysisService{
		gateway:  gw,
		renderer: renderer,
		events:   events{subject: subject},
	}
}

func (s *menuAnalysisService) AnalyzeImage(ctx context.Context, imageData string) (*MenuAnalysis, error) {
	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		return nil, apperrors.NewMissingParameterError("image_data")
	}

	start := s.events.started(ctx, OperationAnalyzeMenuImage)
	analysis, err := s.analyze(ctx, imageData)
	if err != nil {
		s.events.finished(ctx, OperationAnalyzeMenuImage, start, observer.OperationFailed, err)
		return nil, err
	}

	eventType := observer.OperationCompleted
	if analysis.Outcome == extractor.Fallback {
		eventType = observer.OperationFellBack
	}
	s.events.finished(ctx, OperationAnalyzeMenuImage, start, eventType, nil)
	return analysis, nil
}

func (s *menuAnalysisService) analyze(ctx context.Context, imageData string) (*MenuAnalysis, error) {
	raw, err := s.gateway.Complete(ctx, []gateway.Part{
		gateway.Text(menuPrompt),
		gateway.Image(EmbedImage(imageData)),
	})
	if err != nil {
		return nil, asAppError(err, menuErrorPrefix)
	}

	// The model text is rendered on every path so it appears in the audit log.
	rendered, err := s.renderer.Render(raw)
	if err != nil {
		return nil, apperrors.NewInternalError("Could not format the result", err).WithPrefix(menuErrorPrefix)
	}
	logger.WithFields(logrus.Fields{
		"operation": OperationAnalyzeMenuImage,
		"content":   raw,
		"html":      rendered,
	}).Debug("Model answer received")

	extraction := extractor.Extract(raw, ingredientListSchema)
	switch extraction.Outcome {
	case extractor.Success:
		result, err := extractor.Compact(extraction.Span)
		if err != nil {
			return nil, apperrors.NewInternalError("Could not encode the result", err).WithPrefix(menuErrorPrefix)
		}
		return &MenuAnalysis{
			Outcome:     extractor.Success,
			Ingredients: models.IngredientList{Ingredients: extraction.Strings("ingredients")},
			Result:      result,
			HTML:        rendered,
		}, nil

	default:
		if apperrors.IsType(extraction.Err, apperrors.ErrorTypeNoJSON) {
			return s.fallback()
		}
		return nil, asAppError(extraction.Err, menuErrorPrefix)
	}
}

func (s *menuAnalysisService) fallback() (*MenuAnalysis, error) {
	list := models.IngredientList{Ingredients: append([]string(nil), FallbackIngredients...)}

	result, err := json.Marshal(list)
	if err != nil {
		return nil, apperrors.NewInternalError("Could not encode the result", err).WithPrefix(menuErrorPrefix)
	}
	html, err := s.renderer.Render(strings.Join(list.Ingredients, "\n"))
	if err != nil {
		return nil, apperrors.NewInternalError("Could not format the result", err).WithPrefix(menuErrorPrefix)
	}

	return &MenuAnalysis{
		Outcome:     extractor.Fallback,
		Ingredients: list,
		Result:      string(result),
		HTML:        html,
	}, nil
}

// EmbedImage returns imageData as a data URI. Bare base64 is assumed to be JPEG.
func EmbedImage(imageData string) string {
	imageData = strings.TrimSpace(imageData)
	if strings.HasPrefix(imageData, "data:") {
		return imageData
	}
	return "data:image/jpeg;base64," + imageData
}
