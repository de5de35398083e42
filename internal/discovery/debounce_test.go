package discovery

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceCoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	trigger := Debounce(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		trigger()
	}

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// No further invocation arrives after the burst settles.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebounceFiresAgainAfterQuiet(t *testing.T) {
	var calls atomic.Int32
	trigger := Debounce(20*time.Millisecond, func() { calls.Add(1) })

	trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}
