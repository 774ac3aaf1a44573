package broadcast

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker for single-instance deployments
// and tests.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, code string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[code] {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest pending event so the
			// broadcast never blocks the publisher.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

func (b *MemoryBroker) Subscribe(_ context.Context, code string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[chan Event]struct{})
	}
	b.subs[code][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[code]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, code)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
