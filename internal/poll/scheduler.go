// Package poll decides how often a materialized page is refreshed from the
// server and runs the refresh loop for headless callers.
package poll

import (
	"time"

	"github.com/mmcdole/wardrobe/internal/domain"
)

const (
	DefaultFast = 5 * time.Second
	DefaultSlow = 30 * time.Second
)

// Scheduler is a two-speed poller: Fast while anything on the page is
// processing server-side, Slow otherwise. There is no backoff or jitter.
type Scheduler struct {
	Fast time.Duration
	Slow time.Duration
}

// NewScheduler returns a scheduler, substituting defaults for non-positive tiers
func NewScheduler(fast, slow time.Duration) Scheduler {
	if fast <= 0 {
		fast = DefaultFast
	}
	if slow <= 0 {
		slow = DefaultSlow
	}
	return Scheduler{Fast: fast, Slow: slow}
}

// NextDelay returns the delay before the page should be refetched.
// A nil page has nothing processing and gets the slow tier.
func (s Scheduler) NextDelay(page *domain.Page) time.Duration {
	if page != nil && page.HasProcessing() {
		return s.fast()
	}
	return s.slow()
}

func (s Scheduler) fast() time.Duration {
	if s.Fast <= 0 {
		return DefaultFast
	}
	return s.Fast
}

func (s Scheduler) slow() time.Duration {
	if s.Slow <= 0 {
		return DefaultSlow
	}
	return s.Slow
}
