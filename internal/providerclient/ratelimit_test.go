package providerclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/providerclient"
)

func TestBackoffMonotone(t *testing.T) {
	prev := time.Duration(0)
	for hits := 0; hits <= 8; hits++ {
		d := providerclient.Backoff(hits)
		require.GreaterOrEqual(t, d, prev, "backoff must not decrease as hits increase")
		prev = d
	}
}

func TestBackoffConcreteSchedule(t *testing.T) {
	// First backoff 120s, second 240s.
	require.Equal(t, 120*time.Second, providerclient.Backoff(1))
	require.Equal(t, 240*time.Second, providerclient.Backoff(2))
}

func TestBackoffCappedAt900(t *testing.T) {
	require.Equal(t, 900*time.Second, providerclient.Backoff(5))
	require.Equal(t, 900*time.Second, providerclient.Backoff(100))
}
