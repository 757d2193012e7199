package syncer

import "sync"

// broadcastDepth is the per-subscriber buffer: a slow subscriber can fall up
// to this many events behind before publish starts dropping for it.
const broadcastDepth = 100

// broadcaster fans Event out to any number of subscribers over independently
// buffered channels. A full subscriber channel causes publish to drop the
// event for that subscriber rather than block the publisher -- a dropped
// ChangesDetected is gone for good, but a dropped StatusChanged is harmless
// since the subscriber will receive the next one with current state. No
// library in the surrounding stack offers a fan-out primitive with this
// drop-don't-block behavior (Go's stdlib has nothing resembling a broadcast
// channel at all), so this is a small hand-rolled type rather than a gap
// filled by a dependency.
type broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]chan Event{}}
}

// subscribe returns a receive-only channel of future events and an
// unsubscribe function that closes it. Callers must keep draining the
// channel until they call unsubscribe.
func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, broadcastDepth)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
