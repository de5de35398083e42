package discovery

import (
	"sync"
	"time"
)

// Debounce returns a trigger function that coalesces bursts of calls into a
// single invocation of fn, delay after the last call. Used to absorb rapid
// file-change signals into one rescan.
func Debounce(delay time.Duration, fn func()) func() {
	var mu sync.Mutex
	var timer *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, fn)
	}
}
