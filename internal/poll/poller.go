package poll

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/wardrobe/internal/domain"
)

// FetchFunc loads the page being watched
type FetchFunc func(ctx context.Context) (domain.Page, error)

// Result is delivered after every fetch
type Result struct {
	Page  domain.Page
	Err   error
	Next  time.Duration
	Fetch time.Time
}

// Poller refetches one page, re-arming its timer from the page it just got
type Poller struct {
	sched  Scheduler
	fetch  FetchFunc
	logger *slog.Logger
	kick   chan struct{}
}

func NewPoller(sched Scheduler, fetch FetchFunc, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		sched:  sched,
		fetch:  fetch,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
}

// Kick requests an immediate refetch. It never blocks; kicks made while one
// is already queued coalesce.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start launches the poll loop in a goroutine and returns immediately.
// Results are sent on the returned channel, which is closed when ctx is done.
func (p *Poller) Start(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		p.run(ctx, out)
	}()
	return out
}

func (p *Poller) run(ctx context.Context, out chan<- Result) {
	delay := p.sched.NextDelay(nil)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-p.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		page, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("page poll failed", "error", err, "retry_in", delay)
		} else {
			delay = p.sched.NextDelay(&page)
		}

		select {
		case out <- Result{Page: page, Err: err, Next: delay, Fetch: time.Now()}:
		case <-ctx.Done():
			return
		}
		timer.Reset(delay)
	}
}
