// Package events provides an in-process publish/subscribe bus.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// maxAsyncPublishes caps the number of concurrently running async deliveries.
const maxAsyncPublishes = 100

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// Bus delivers events to subscribers, either synchronously on the
// publisher's goroutine or asynchronously.
type Bus struct {
	mu          sync.RWMutex
	handlers    map[Type][]subscription
	allHandlers []subscription

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		handlers:    make(map[Type][]subscription),
		allHandlers: make([]subscription, 0),
		sem:         make(chan struct{}, maxAsyncPublishes),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers a handler for one event type and returns its ID.
func (b *Bus) Subscribe(t Type, h Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, subscription{id: id, handler: h})
	return id
}

// Unsubscribe removes a handler. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, subs := range b.handlers {
		b.handlers[t] = without(subs, id)
		if len(b.handlers[t]) == 0 {
			delete(b.handlers, t)
		}
	}
	b.allHandlers = without(b.allHandlers, id)
}

func without(subs []subscription, id string) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// HasSubscribers reports whether anything would receive an event of type t.
func (b *Bus) HasSubscribers(t Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t]) > 0 || len(b.allHandlers) > 0
}

// Publish delivers a typed event synchronously.
func (b *Bus) Publish(e Eventer) {
	b.PublishRaw(e.ToEvent())
}

// PublishRaw delivers an event synchronously, type handlers first.
func (b *Bus) PublishRaw(e Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[e.Type])+len(b.allHandlers))
	for _, s := range b.handlers[e.Type] {
		targets = append(targets, s.handler)
	}
	for _, s := range b.allHandlers {
		targets = append(targets, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
}

// PublishAsync delivers a typed event on a separate goroutine.
func (b *Bus) PublishAsync(e Eventer) {
	b.PublishRawAsync(e.ToEvent())
}

// PublishRawAsync delivers an event on a separate goroutine. Deliveries that
// have not acquired a slot when Shutdown is called are dropped.
func (b *Bus) PublishRawAsync(e Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case b.sem <- struct{}{}:
		case <-b.ctx.Done():
			return
		}
		defer func() { <-b.sem }()

		b.PublishRaw(e)
	}()
}

// Shutdown stops accepting pending async deliveries and waits for running
// handlers to return.
func (b *Bus) Shutdown() {
	b.cancel()
	b.wg.Wait()
}
