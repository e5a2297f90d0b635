package registry

import (
	"sync"

	"github.com/netmesh/peerq/internal/peer"
)

// EventBus fans every peer's diagnostics Events out to subscribers (the
// admin HTTP websocket tail, SPEC_FULL.md A14). It implements
// peer.EventSink directly so a Registry can hand its bus to every Peer it
// creates.
type EventBus struct {
	mu   sync.RWMutex
	subs map[int]chan<- peer.Event
	next int
}

// NewEventBus builds an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan<- peer.Event)}
}

// Subscribe registers ch to receive future events. The returned func
// unsubscribes; callers must call it to avoid leaking the channel
// reference. Sends are non-blocking: a slow subscriber drops events rather
// than stalling every peer's actor loop.
func (b *EventBus) Subscribe(ch chan<- peer.Event) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *EventBus) OnPeerEvent(e peer.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
