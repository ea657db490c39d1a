package clock

import (
	"sync"
	"time"
)

// Clock produces process-relative monotonic timestamps for stamping
// captured frames. The first reading arms the epoch and is always exactly
// zero; every later reading is the elapsed monotonic nanoseconds since that
// first reading. Timestamps from the same Clock are therefore directly
// comparable across repeated captures.
//
// The zero-on-first-reading contract is load-bearing: measurement tooling
// downstream treats the first sample as the session origin, not as data.
type Clock struct {
	mu    sync.Mutex
	armed bool
	epoch time.Time
}

// New returns an unarmed Clock. The epoch is captured by the first call to
// NowNanoseconds, not at construction.
func New() *Clock {
	return &Clock{}
}

// NowNanoseconds returns elapsed monotonic nanoseconds since the clock's
// first reading. The first call returns 0 and establishes the epoch. It
// never fails. No wraparound handling is provided; the clock is unsuitable
// for sessions exceeding the platform's monotonic counter range.
func (c *Clock) NowNanoseconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		c.epoch = time.Now()
		c.armed = true
		return 0
	}
	return time.Since(c.epoch).Nanoseconds()
}
