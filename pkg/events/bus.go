package events

import (
	"context"
	"sync"
)

var _ Subscriber = (*Bus)(nil)

type entry struct {
	id uint64
	h  Handler
}

// Bus is an in-process handler registry and dispatcher.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string][]entry
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

func (b *Bus) On(name string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.handlers[name] = append(b.handlers[name], entry{id: b.next, h: h})
	return &subscription{bus: b, name: name, id: b.next}
}

func (b *Bus) Off(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(names) == 0 {
		clear(b.handlers)
		return
	}
	for _, n := range names {
		delete(b.handlers, n)
	}
}

// Dispatch calls every handler registered for e.Name and returns how many ran.
// The handler list is snapshotted first, so a handler may unsubscribe itself.
func (b *Bus) Dispatch(ctx context.Context, e Event) int {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Name]))
	for _, en := range b.handlers[e.Name] {
		hs = append(hs, en.h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, e)
	}
	return len(hs)
}

// Handlers returns the number of handlers registered for name.
func (b *Bus) Handlers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[name]
	for i, en := range list {
		if en.id == id {
			b.handlers[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

type subscription struct {
	bus  *Bus
	name string
	id   uint64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.name, s.id) })
}
