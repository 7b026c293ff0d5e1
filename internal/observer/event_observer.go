package observer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/metrics"
)

// AnalysisEvent represents one step of a tool operation
type AnalysisEvent struct {
	EventType EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Operation string                 `json:"operation"`
	Duration  time.Duration          `json:"duration"`
	Err       error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// OperationStarted when a request reaches a service
	OperationStarted EventType = "operation_started"
	// OperationCompleted when the model answer was extracted
	OperationCompleted EventType = "operation_completed"
	// OperationFellBack when substitute data was returned instead
	OperationFellBack EventType = "operation_fell_back"
	// OperationFailed when the operation surfaced an error
	OperationFailed EventType = "operation_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// ErrorType returns the taxonomy label of err, or "unknown".
func ErrorType(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return "unknown"
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"operation":  event.Operation,
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
		fields["error_type"] = ErrorType(event.Err)
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case OperationStarted:
		entry.Debug("Operation started")
	case OperationCompleted:
		entry.Info("Operation completed")
	case OperationFellBack:
		entry.Warn("Operation fell back to substitute data")
	case OperationFailed:
		entry.Error("Operation failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver feeds analysis events into the Prometheus collectors
type MetricsObserver struct{}

// NewMetricsObserver creates a new metrics observer and registers the collectors
func NewMetricsObserver() Observer {
	metrics.Register()
	return &MetricsObserver{}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	switch event.EventType {
	case OperationCompleted:
		metrics.OperationsTotal.WithLabelValues(event.Operation, "success").Inc()
		metrics.OperationDurationSeconds.WithLabelValues(event.Operation).Observe(event.Duration.Seconds())
	case OperationFellBack:
		metrics.OperationsTotal.WithLabelValues(event.Operation, "fallback").Inc()
		metrics.OperationDurationSeconds.WithLabelValues(event.Operation).Observe(event.Duration.Seconds())
		metrics.FallbacksTotal.Inc()
	case OperationFailed:
		metrics.OperationsTotal.WithLabelValues(event.Operation, "failure").Inc()
		metrics.OperationDurationSeconds.WithLabelValues(event.Operation).Observe(event.Duration.Seconds())
		metrics.OperationErrorsTotal.WithLabelValues(ErrorType(event.Err)).Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in subscription order
// before returning. A panicking observer does not stop the others.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"observer":   obs.GetObserverName(),
				"event_type": event.EventType,
				"panic":      r,
			}).Warn("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
