package events

import (
	"context"
	"sync"
)

// Handler receives one event. Handlers run on the broker's delivery goroutine
// and must not block for long.
type Handler func(Event)

// Broker fans events out to every subscriber of a board, including the session
// that caused the mutation. Subscribe returns a cancel func tied to the
// session's join/leave lifetime.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(boardID string, handler Handler) (cancel func())
}

// MemoryBroker is the single-node Broker. It is also the local delivery layer
// the Redis broker dispatches into.
type MemoryBroker struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]Handler)}
}

func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.dispatch(event)
	return nil
}

func (b *MemoryBroker) dispatch(event Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[event.BoardID]))
	for _, handler := range b.subs[event.BoardID] {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (b *MemoryBroker) Subscribe(boardID string, handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[boardID] == nil {
		b.subs[boardID] = make(map[int]Handler)
	}
	b.subs[boardID][id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[boardID], id)
		if len(b.subs[boardID]) == 0 {
			delete(b.subs, boardID)
		}
		b.mu.Unlock()
	}
}

// SubscriberCount reports the live subscriptions for a board.
func (b *MemoryBroker) SubscriberCount(boardID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[boardID])
}
