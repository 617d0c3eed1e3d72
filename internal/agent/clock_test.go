package agent

import (
	"sync"
	"time"
)

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// frozenClock never fires: runs block between steps until cancelled or
// timed out.
type frozenClock struct{}

func (frozenClock) Now() time.Time { return epoch }

func (frozenClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

// recordingClock fires at once and remembers every requested delay.
type recordingClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *recordingClock) Now() time.Time { return epoch }

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- epoch.Add(d)
	return ch
}

func (c *recordingClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}
