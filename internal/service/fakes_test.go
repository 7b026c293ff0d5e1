package service

import (
	"context"
	"sync"

	"go-ingredient-analyzer/internal/gateway"
	"go-ingredient-analyzer/internal/observer"
)

// fakeGateway answers every call with a fixed response and counts calls.
type fakeGateway struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	parts    []gateway.Part
}

func (g *fakeGateway) Complete(_ context.Context, parts []gateway.Part) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.parts = parts
	return g.response, g.err
}

type recordingObserver struct {
	events []observer.AnalysisEvent
}

func (o *recordingObserver) OnEvent(_ context.Context, event observer.AnalysisEvent) {
	o.events = append(o.events, event)
}

func (o *recordingObserver) GetObserverName() string { return "recording" }

func (o *recordingObserver) types() []observer.EventType {
	out := make([]observer.EventType, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.EventType)
	}
	return out
}

func newSubject() (observer.Subject, *recordingObserver) {
	rec := &recordingObserver{}
	pub := observer.NewEventPublisher()
	pub.Subscribe(rec)
	return pub, rec
}
