package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/metrics"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []AnalysisEvent
}

func (o *recordingObserver) OnEvent(_ context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) GetObserverName() string { return o.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                { return "panicking" }

func TestEventPublisher_NotifiesSynchronously(t *testing.T) {
	pub := NewEventPublisher()
	first := &recordingObserver{name: "first"}
	second := &recordingObserver{name: "second"}
	pub.Subscribe(first)
	pub.Subscribe(panickingObserver{})
	pub.Subscribe(second)

	pub.NotifyObservers(context.Background(), AnalysisEvent{EventType: OperationStarted, Operation: "get_ingredient_info"})

	// no waiting: delivery has finished when NotifyObservers returns
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, OperationStarted, second.events[0].EventType)
	assert.False(t, second.events[0].Timestamp.IsZero())
}

func TestEventPublisher_PanicLoggedAsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	pub := NewEventPublisher()
	pub.Subscribe(panickingObserver{})
	pub.NotifyObservers(context.Background(), AnalysisEvent{EventType: OperationCompleted, Operation: "get_ingredient_info"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "panicking", entry["observer"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Equal(t, "Observer panicked while handling event", entry["msg"])
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	pub := NewEventPublisher()
	obs := &recordingObserver{name: "obs"}
	pub.Subscribe(obs)
	pub.Unsubscribe(&recordingObserver{name: "obs"})

	pub.NotifyObservers(context.Background(), AnalysisEvent{EventType: OperationCompleted})
	assert.Empty(t, obs.events)
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)

	obs := NewLoggingObserver(log)
	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType: OperationFailed,
		Operation: "analyze_menu_image",
		Duration:  1500 * time.Millisecond,
		Err:       apperrors.NewUpstreamError("The model service is unavailable", nil),
		Metadata:  map[string]interface{}{"request_id": "abc"},
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"operation":"analyze_menu_image"`)
	assert.Contains(t, out, `"error_type":"upstream_unavailable"`)
	assert.Contains(t, out, `"duration_ms":1500`)
	assert.Contains(t, out, `"request_id":"abc"`)
}

func TestMetricsObserver(t *testing.T) {
	obs := NewMetricsObserver()
	ctx := context.Background()

	success := metrics.OperationsTotal.WithLabelValues("test_op", "success")
	fallback := metrics.OperationsTotal.WithLabelValues("test_op", "fallback")
	failure := metrics.OperationsTotal.WithLabelValues("test_op", "failure")
	noJSON := metrics.OperationErrorsTotal.WithLabelValues(string(apperrors.ErrorTypeNoJSON))

	baseSuccess := testutil.ToFloat64(success)
	baseFallback := testutil.ToFloat64(fallback)
	baseFailure := testutil.ToFloat64(failure)
	baseNoJSON := testutil.ToFloat64(noJSON)
	baseFallbacks := testutil.ToFloat64(metrics.FallbacksTotal)

	obs.OnEvent(ctx, AnalysisEvent{EventType: OperationStarted, Operation: "test_op"})
	obs.OnEvent(ctx, AnalysisEvent{EventType: OperationCompleted, Operation: "test_op", Duration: time.Second})
	obs.OnEvent(ctx, AnalysisEvent{EventType: OperationFellBack, Operation: "test_op"})
	obs.OnEvent(ctx, AnalysisEvent{EventType: OperationFailed, Operation: "test_op", Err: apperrors.NewNoJSONError("x")})

	assert.Equal(t, baseSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, baseFallback+1, testutil.ToFloat64(fallback))
	assert.Equal(t, baseFailure+1, testutil.ToFloat64(failure))
	assert.Equal(t, baseNoJSON+1, testutil.ToFloat64(noJSON))
	assert.Equal(t, baseFallbacks+1, testutil.ToFloat64(metrics.FallbacksTotal))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "timeout", ErrorType(apperrors.NewTimeoutError("slow", nil)))
	assert.Equal(t, "unknown", ErrorType(errors.New("plain")))
}
