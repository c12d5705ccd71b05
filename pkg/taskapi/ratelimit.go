package taskapi

import (
	"sync"
	"time"
)

// SlidingWindow admits a request when fewer than max requests were admitted
// within the trailing window. Denied callers are told how long until the
// oldest admitted request ages out; they fail fast rather than block.
type SlidingWindow struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	admitted []time.Time
}

func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow records and admits one request, or reports the wait until admission
// becomes possible. The admitted count within any trailing window never
// exceeds max.
func (w *SlidingWindow) Allow() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.admitted[:0]
	for _, at := range w.admitted {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	w.admitted = kept

	if len(w.admitted) >= w.max {
		retryAfter := w.admitted[0].Add(w.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return retryAfter, false
	}

	w.admitted = append(w.admitted, now)
	return 0, true
}
