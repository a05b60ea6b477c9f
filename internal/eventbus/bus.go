package eventbus

import (
	"context"
	"sync"

	"civicwatch/internal/events"
)

// Bus is the publishing side of the event pipeline. The core treats
// publishing as best-effort: a bus failure never fails the operation that
// produced the event.
type Bus interface {
	Publish(ctx context.Context, event *events.Event) error
	Close() error
}

// InProcBus fans events out to subscribers inside the process. It backs
// tests and deployments without Redis.
type InProcBus struct {
	mu   sync.RWMutex
	subs []func(*events.Event)
}

// NewInProcBus creates an empty in-process bus.
func NewInProcBus() *InProcBus {
	return &InProcBus{}
}

// Subscribe registers fn for every subsequently published event.
func (b *InProcBus) Subscribe(fn func(*events.Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// Publish delivers the event synchronously to all subscribers.
func (b *InProcBus) Publish(_ context.Context, event *events.Event) error {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
	return nil
}

// Close is a no-op.
func (b *InProcBus) Close() error { return nil }

// MultiBus publishes to several buses in order. The first error is
// returned after every bus has been attempted.
type MultiBus struct {
	buses []Bus
}

// NewMultiBus combines buses into one.
func NewMultiBus(buses ...Bus) *MultiBus {
	return &MultiBus{buses: buses}
}

// Publish delivers the event to every bus.
func (m *MultiBus) Publish(ctx context.Context, event *events.Event) error {
	var first error
	for _, b := range m.buses {
		if err := b.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every bus.
func (m *MultiBus) Close() error {
	var first error
	for _, b := range m.buses {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
