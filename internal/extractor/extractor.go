package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "go-ingredient-analyzer/internal/errors"
)

// Outcome tags an Extraction.
type Outcome int

const (
	Success Outcome = iota
	// Fallback means substitute data stands in for model output that held no JSON.
	Fallback
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Fallback:
		return "fallback"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Schema describes the object the model was asked to produce.
type Schema struct {
	// Required lists fields that must be present.
	Required []string
	// NonEmptyStrings requires every Required field to be a non-blank string.
	NonEmptyStrings bool
	// StringArray names a field that must be a non-empty array of strings.
	StringArray string
}

// Extraction is the result of pulling a structured object out of free text.
// Exactly one of Object (Success, Fallback) or Err (Failure) is meaningful.
type Extraction struct {
	Outcome Outcome
	Object  map[string]any
	// Span is the exact JSON text that was parsed.
	Span string
	Err  error
}

// Strings returns the named field as a string slice, or nil if it is not one.
func (e Extraction) Strings(field string) []string {
	items, ok := e.Object[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

// String returns the named field as a string.
func (e Extraction) String(field string) string {
	s, _ := e.Object[field].(string)
	return s
}

// Extract locates the JSON object embedded in raw model text and validates it
// against schema. The span runs from the first '{' to the last '}' with no
// brace balancing; the model is instructed to emit exactly one object.
func Extract(raw string, schema Schema) Extraction {
	span, ok := locate(raw)
	if !ok {
		return failed(apperrors.NewNoJSONError("The model response did not contain structured data"))
	}

	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return failed(apperrors.NewInvalidShapeError("The model response could not be read").
			WithDetails("parse %q: %v", truncate(span, 200), err))
	}
	if dec.More() {
		return failed(apperrors.NewInvalidShapeError("The model response could not be read").
			WithDetails("trailing data after JSON object in %q", truncate(span, 200)))
	}
	if obj == nil {
		return failed(apperrors.NewInvalidShapeError("The model response could not be read").
			WithDetails("JSON value is not an object"))
	}

	if err := validate(obj, schema); err != nil {
		return failed(err)
	}

	return Extraction{Outcome: Success, Object: obj, Span: span}
}

func locate(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

func validate(obj map[string]any, schema Schema) error {
	var missing []string
	for _, field := range schema.Required {
		v, ok := obj[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if schema.NonEmptyStrings {
			s, isString := v.(string)
			if !isString || strings.TrimSpace(s) == "" {
				missing = append(missing, field)
			}
		}
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidShapeError("The model response was incomplete").
			WithDetails("missing or empty fields: %s", strings.Join(missing, ", "))
	}

	if schema.StringArray != "" {
		items, ok := obj[schema.StringArray].([]any)
		if !ok {
			return apperrors.NewInvalidShapeError("The model response was incomplete").
				WithDetails("field %q is not an array", schema.StringArray)
		}
		if len(items) == 0 {
			return apperrors.NewInvalidShapeError("The model response was incomplete").
				WithDetails("field %q is empty", schema.StringArray)
		}
		for i, item := range items {
			if _, ok := item.(string); !ok {
				return apperrors.NewInvalidShapeError("The model response was incomplete").
					WithDetails("field %q item %d is %T, want string", schema.StringArray, i, item)
			}
		}
	}
	return nil
}

func failed(err error) Extraction {
	return Extraction{Outcome: Failure, Err: err}
}

// Compact re-encodes a parsed span without insignificant whitespace.
func Compact(span string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(span)); err != nil {
		return "", fmt.Errorf("compact JSON: %w", err)
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
