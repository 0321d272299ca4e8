package usecase

import (
	"context"
	"sync"
	"time"
)

// ScheduledRefresh is a cancellable fixed-interval task with an
// explicit start/stop contract. The interval is not drift-corrected
// and the toggle state is not persisted across restarts.
type ScheduledRefresh struct {
	interval time.Duration
	run      func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewScheduledRefresh(interval time.Duration, run func(ctx context.Context)) *ScheduledRefresh {
	return &ScheduledRefresh{interval: interval, run: run}
}

// Start begins the loop. Starting an already-running task is a no-op.
func (t *ScheduledRefresh) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.loop(ctx)
}

// Stop cancels the loop. Stopping a stopped task is a no-op.
func (t *ScheduledRefresh) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}

// Running reports whether the loop is active.
func (t *ScheduledRefresh) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *ScheduledRefresh) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.run(ctx)
		}
	}
}
