package hubevents

import (
	"sync"

	"go.uber.org/zap"

	"hubevents/pkg/herrors"
	"hubevents/pkg/logger"
)

// Listener receives a committed event. It must not block or panic;
// panics are recovered and logged, but a slow listener stalls the
// coordinator's post-commit fan-out for every subscriber behind it.
type Listener func(Event)

// Bus is a typed publish interface with one channel per event kind.
// Listener callbacks are invoked synchronously, in registration order,
// on the goroutine that calls Broadcast.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventKind][]Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventKind][]Listener)}
}

// Subscribe registers l to receive events of kind, in addition to any
// already registered for that kind. Registration order is preserved.
func (b *Bus) Subscribe(kind EventKind, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], l)
}

// Broadcast dispatches e to every listener registered for e.Args.Kind.
// A kind with no registered listeners is not an error; a kind outside
// the five recognized event kinds is a programmer error.
func (b *Bus) Broadcast(e Event) error {
	switch e.Args.Kind {
	case EventKindMergeMessage, EventKindPruneMessage, EventKindRevokeMessage,
		EventKindMergeUsernameProof, EventKindMergeOnChainEvent:
	default:
		return herrors.InvalidParam("bus: event id %d has unrecognized kind %v", e.ID, e.Args.Kind)
	}

	b.mu.RLock()
	ls := append([]Listener(nil), b.listeners[e.Args.Kind]...)
	b.mu.RUnlock()

	for _, l := range ls {
		b.dispatchOne(l, e)
	}
	return nil
}

// dispatchOne invokes l, isolating the caller from a panicking
// listener so the remaining listeners still run and the commit that
// produced e is never affected.
func (b *Bus) dispatchOne(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bus_listener_panicked",
				zap.Uint64("event_id", e.ID),
				zap.Any("recovered", r))
		}
	}()
	l(e)
}
