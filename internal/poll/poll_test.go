package poll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/wardrobe/internal/domain"
)

func pageWith(statuses ...domain.ItemStatus) *domain.Page {
	p := &domain.Page{Page: 1, PageSize: 20, Total: len(statuses)}
	for i, s := range statuses {
		p.Items = append(p.Items, domain.Item{ID: fmt.Sprintf("i%d", i), Status: s})
	}
	return p
}

func TestNextDelay(t *testing.T) {
	s := NewScheduler(0, 0)

	tests := []struct {
		name string
		page *domain.Page
		want time.Duration
	}{
		{"absent page", nil, 30 * time.Second},
		{"empty page", pageWith(), 30 * time.Second},
		{"all ready", pageWith(domain.StatusReady, domain.StatusError), 30 * time.Second},
		{"archived is not transient", pageWith(domain.StatusArchived), 30 * time.Second},
		{"one processing", pageWith(domain.StatusReady, domain.StatusProcessing), 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.NextDelay(tt.page))
		})
	}
}

func TestNextDelay_BacksOffWhenProcessingFinishes(t *testing.T) {
	s := NewScheduler(0, 0)

	statuses := make([]domain.ItemStatus, 20)
	for i := range statuses {
		statuses[i] = domain.StatusReady
	}
	statuses[3], statuses[9], statuses[15] = domain.StatusProcessing, domain.StatusProcessing, domain.StatusProcessing

	page := pageWith(statuses...)
	assert.Equal(t, int64(5000), s.NextDelay(page).Milliseconds())

	// one finishes, two remain
	page.Items[3].Status = domain.StatusReady
	assert.Equal(t, int64(5000), s.NextDelay(page).Milliseconds())

	page.Items[9].Status = domain.StatusReady
	page.Items[15].Status = domain.StatusError
	assert.Equal(t, int64(30000), s.NextDelay(page).Milliseconds())
}

func TestScheduler_ZeroValueUsesDefaults(t *testing.T) {
	var s Scheduler
	assert.Equal(t, DefaultSlow, s.NextDelay(nil))
	assert.Equal(t, DefaultFast, s.NextDelay(pageWith(domain.StatusProcessing)))
}

func TestPoller_RearmsFromEachFetch(t *testing.T) {
	sched := Scheduler{Fast: 10 * time.Millisecond, Slow: time.Hour}

	var calls atomic.Int32
	fetch := func(context.Context) (domain.Page, error) {
		// processing for the first two fetches, then settled
		if calls.Add(1) <= 2 {
			return *pageWith(domain.StatusProcessing), nil
		}
		return *pageWith(domain.StatusReady), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := NewPoller(sched, fetch, nil).Start(ctx)

	var delays []time.Duration
	for range 3 {
		select {
		case r := <-results:
			require.NoError(t, r.Err)
			delays = append(delays, r.Next)
		case <-time.After(2 * time.Second):
			t.Fatal("poller stalled")
		}
	}
	assert.Equal(t, []time.Duration{sched.Fast, sched.Fast, sched.Slow}, delays)

	select {
	case <-results:
		t.Fatal("slow tier should not fire within the test")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPoller_ErrorKeepsPreviousTier(t *testing.T) {
	sched := Scheduler{Fast: 10 * time.Millisecond, Slow: time.Hour}

	var calls atomic.Int32
	fetch := func(context.Context) (domain.Page, error) {
		if calls.Add(1) == 1 {
			return *pageWith(domain.StatusProcessing), nil
		}
		return domain.Page{}, errors.New("offline")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := NewPoller(sched, fetch, nil).Start(ctx)

	first := <-results
	second := <-results
	assert.NoError(t, first.Err)
	assert.Error(t, second.Err)
	assert.Equal(t, sched.Fast, second.Next)
}

func TestPoller_KickAndStop(t *testing.T) {
	sched := Scheduler{Fast: time.Hour, Slow: time.Hour}
	var calls atomic.Int32
	fetch := func(context.Context) (domain.Page, error) {
		calls.Add(1)
		return domain.Page{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(sched, fetch, nil)
	results := p.Start(ctx)

	<-results
	p.Kick()
	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("kick did not trigger a fetch")
	}
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	_, open := <-results
	assert.False(t, open)
}
