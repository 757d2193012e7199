package syncer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := newBroadcaster()
	chA, unsubA := b.subscribe()
	defer unsubA()
	chB, unsubB := b.subscribe()
	defer unsubB()

	b.publish(Event{Kind: EventStatusChanged})

	require.Len(t, chA, 1)
	require.Len(t, chB, 1)
}

// TestBroadcasterDropsForSlowSubscriber asserts a full subscriber buffer
// never blocks publish -- excess events are dropped for that subscriber
// only.
func TestBroadcasterDropsForSlowSubscriber(t *testing.T) {
	b := newBroadcaster()
	ch, unsub := b.subscribe()
	defer unsub()

	for i := 0; i < broadcastDepth+10; i++ {
		b.publish(Event{Kind: EventStatusChanged})
	}

	require.Len(t, ch, broadcastDepth)
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := newBroadcaster()
	ch, unsub := b.subscribe()
	unsub()

	_, open := <-ch
	require.False(t, open)

	// Publishing after everyone has unsubscribed must not panic.
	b.publish(Event{Kind: EventStatusChanged})
}
