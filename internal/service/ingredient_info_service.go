package service

import (
	"context"
	"fmt"
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

const infoPromptTemplate = `Describe the food ingredient "%s" in detail, covering: 1. a short description 2. what it is used for 3. its nutritional value 4. why it is added 5. the effect of leaving it out. Return the answer in exactly this JSON format: {"description": "short description", "usage": "what it is used for", "nutrition": "nutritional value", "reason": "why it is added", "impact": "effect of leaving it out"}. The answer must be a string that a strict JSON parser can read.`

const infoErrorPrefix = "Ingredient lookup failed: "

var detailSchema = extractor.Schema{
	Required:        models.DetailFields,
	NonEmptyStrings: true,
}

// sectionHeadings are rendered in models.DetailFields order.
var sectionHeadings = map[string]string{
	"description": "Description",
	"usage":       "Usage",
	"nutrition":   "Nutritional value",
	"reason":      "Why it is added",
	"impact":      "Effect if omitted",
}

// model output sometimes carries JSON escapes inside already-decoded strings
var escapeReplacer = strings.NewReplacer(`\n`, "\n", `\"`, `"`)

// IngredientInfo is the explanation of a single ingredient.
type IngredientInfo struct {
	Detail models.IngredientDetail
	// Result is the JSON text of the object as the model produced it.
	Result string
	HTML   string
}

// IngredientInfoService explains one ingredient.
type IngredientInfoService interface {
	Explain(ctx context.Context, ingredient string) (*IngredientInfo, error)
}

type ingredientInfoService struct {
	gateway  gateway.Gateway
	renderer markup.Renderer
	events   events
}

// NewIngredientInfoService creates a new ingredient info service
func NewIngredientInfoService(gw gateway.Gateway, renderer markup.Renderer, subject observer.Subject) IngredientInfoService {
	return &ingredientInfoService{
		gateway:  gw,
		renderer: renderer,
		events:   events{subject: subject},
	}
}

func (s *ingredientInfoService) Explain(ctx context.Context, ingredient string) (*IngredientInfo, error) {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return nil, apperrors.NewMissingParameterError("ingredient")
	}

	start := s.events.started(ctx, OperationGetIngredientInfo)
	info, err := s.explain(ctx, ingredient)
	if err != nil {
		s.events.finished(ctx, OperationGetIngredientInfo, start, observer.OperationFailed, err)
		return nil, err
	}
	s.events.finished(ctx, OperationGetIngredientInfo, start, observer.OperationCompleted, nil)
	return info, nil
}

func (s *ingredientInfoService) explain(ctx context.Context, ingredient string) (*IngredientInfo, error) {
	raw, err := s.gateway.Complete(ctx, []gateway.Part{
		gateway.Text(fmt.Sprintf(infoPromptTemplate, ingredient)),
	})
	if err != nil {
		return nil, asAppError(err, infoErrorPrefix)
	}

	logger.WithFields(logrus.Fields{
		"operation":  OperationGetIngredientInfo,
		"ingredient": ingredient,
		"content":    raw,
	}).Debug("Model answer received")

	extraction := extractor.Extract(raw, detailSchema)
	if extraction.Outcome != extractor.Success {
		return nil, asAppError(extraction.Err, infoErrorPrefix)
	}

	detail := models.IngredientDetail{
		Description: extraction.String("description"),
		Usage:       extraction.String("usage"),
		Nutrition:   extraction.String("nutrition"),
		Reason:      extraction.String("reason"),
		Impact:      extraction.String("impact"),
	}

	html, err := s.assemble(detail)
	if err != nil {
		return nil, apperrors.NewInternalError("Could not format the result", err).WithPrefix(infoErrorPrefix)
	}

	result, err := extractor.Compact(extraction.Span)
	if err != nil {
		return nil, apperrors.NewInternalError("Could not encode the result", err).WithPrefix(infoErrorPrefix)
	}

	return &IngredientInfo{Detail: detail, Result: result, HTML: html}, nil
}

// assemble renders each field on its own and joins them under fixed headings.
func (s *ingredientInfoService) assemble(detail models.IngredientDetail) (string, error) {
	var b strings.Builder
	b.WriteString("<div class=\"ingredient-info\">\n")
	for _, field := range models.DetailFields {
		section, err := s.renderer.Render(Unescape(detail.Field(field)))
		if err != nil {
			return "", fmt.Errorf("render %s: %w", field, err)
		}
		fmt.Fprintf(&b, "<h3>%s</h3>\n%s", sectionHeadings[field], section)
	}
	b.WriteString("</div>")
	return b.String(), nil
}

// Unescape turns literal \n and \" sequences into a newline and a quote.
func Unescape(s string) string {
	return escapeReplacer.Replace(s)
}
