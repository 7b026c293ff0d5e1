package service

import (
	"context"
	"errors"
	"time"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/observer"
)

// Operation names as exposed by the router and the tool server.
const (
	OperationAnalyzeMenuImage  = "analyze_menu_image"
	OperationGetIngredientInfo = "get_ingredient_info"
)

// events publishes the lifecycle of one operation. A nil Subject is allowed.
type events struct {
	subject observer.Subject
}

func (e events) started(ctx context.Context, operation string) time.Time {
	e.publish(ctx, observer.AnalysisEvent{EventType: observer.OperationStarted, Operation: operation})
	return time.Now()
}

func (e events) finished(ctx context.Context, operation string, start time.Time, eventType observer.EventType, err error) {
	e.publish(ctx, observer.AnalysisEvent{
		EventType: eventType,
		Operation: operation,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (e events) publish(ctx context.Context, event observer.AnalysisEvent) {
	if e.subject == nil {
		return
	}
	if id, ok := RequestIDFrom(ctx); ok {
		event.Metadata = map[string]interface{}{"request_id": id}
	}
	e.subject.NotifyObservers(ctx, event)
}

// asAppError prefixes err's user message with the operation label. Errors
// outside the taxonomy are treated as upstream failures.
func asAppError(err error, prefix string) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.WithPrefix(prefix)
	}
	return apperrors.NewUpstreamError("The model service is unavailable", err).WithPrefix(prefix)
}

type requestIDKey struct{}

// WithRequestID attaches the request id used to correlate events and logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
