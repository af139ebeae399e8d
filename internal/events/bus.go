package events

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

type Event struct {
	ID         string
	Name       string
	Payload    any
	OccurredAt time.Time
}

type Handler func(ctx context.Context, e Event)

// PublishObserver is told about every published event, e.g. to count them.
type PublishObserver interface {
	EventPublished(name string)
}

type subscription struct {
	id      uint64
	handler Handler
	once    bool
}

// Bus is an in-process publish/subscribe hub. Handlers run synchronously on the
// publishing goroutine, in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	lastID   uint64

	log      *slog.Logger
	observer PublishObserver
}

type BusOption func(*Bus)

func WithObserver(o PublishObserver) BusOption {
	return func(b *Bus) { b.observer = o }
}

func NewBus(log *slog.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]*subscription),
		log:      logger.OrDefault(log).With("component", "event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for name and returns a func that removes exactly this
// registration.
func (b *Bus) Subscribe(name string, h Handler) func() {
	return b.add(name, h, false)
}

// Once registers h to run on the next publish of name only.
func (b *Bus) Once(name string, h Handler) func() {
	return b.add(name, h, true)
}

// Unsubscribe removes every registration of h for name. Handlers are matched by
// function identity, so two closures built from the same literal are the same
// handler here; use the func returned by Subscribe to remove one registration.
func (b *Bus) Unsubscribe(name string, h Handler) {
	if h == nil {
		return
	}
	target := reflect.ValueOf(h).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[name]
	kept := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if reflect.ValueOf(s.handler).Pointer() != target {
			kept = append(kept, s)
		}
	}
	b.set(name, kept)
}

// Publish delivers payload to the handlers registered for name at the time of
// the call. A panicking handler is logged and does not stop the others.
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	snapshot := make([]*subscription, len(b.handlers[name]))
	copy(snapshot, b.handlers[name])
	b.mu.RUnlock()

	e := Event{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	if b.observer != nil {
		b.observer.EventPublished(name)
	}

	for _, s := range snapshot {
		if s.once && !b.remove(name, s.id) {
			continue
		}
		b.invoke(ctx, s, e)
	}
}

// Clear drops all handlers for the given names, or every handler when none are given.
func (b *Bus) Clear(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(names) == 0 {
		b.handlers = make(map[string][]*subscription)
		return
	}
	for _, n := range names {
		delete(b.handlers, n)
	}
}

func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// EventNames lists names with at least one handler, sorted.
func (b *Bus) EventNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers))
	for n := range b.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (b *Bus) add(name string, h Handler, once bool) func() {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.lastID++
	id := b.lastID
	b.handlers[name] = append(b.handlers[name], &subscription{id: id, handler: h, once: once})
	b.mu.Unlock()

	var done sync.Once
	return func() {
		done.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			kept := make([]*subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			kept = append(kept, subs[i+1:]...)
			b.set(name, kept)
			return true
		}
	}
	return false
}

// set must be called with mu held.
func (b *Bus) set(name string, subs []*subscription) {
	if len(subs) == 0 {
		delete(b.handlers, name)
		return
	}
	b.handlers[name] = subs
}

func (b *Bus) invoke(ctx context.Context, s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.ErrorContext(ctx, "event handler panicked",
				"event", e.Name, "event_id", e.ID, "panic", r)
		}
	}()
	s.handler(ctx, e)
}
