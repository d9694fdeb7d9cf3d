package stdlib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/superbasic/vm"
)

// timer raises Timer.Tick every interval while running. Ticks are handed
// to Config.Dispatch so the engine only ever sees them on its own goroutine.
type timer struct {
	c *Collection

	mu       sync.Mutex
	interval time.Duration
	paused   bool
	stopCh   chan struct{}
}

func newTimer(c *Collection) *timer {
	return &timer{c: c}
}

// restart (re)starts the ticking goroutine with the current interval.
// Callers hold t.mu.
func (t *timer) restart() {
	t.stopLocked()
	if t.paused || t.interval <= 0 {
		return
	}
	if t.c.cfg.Dispatch == nil {
		t.c.log.Warningf("Timer.Interval set but the host has no event dispatcher")
		return
	}
	stop := make(chan struct{})
	t.stopCh = stop
	ticker := time.NewTicker(t.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.c.cfg.Dispatch(func() { t.c.raise("Timer", "Tick") })
			case <-stop:
				return
			}
		}
	}()
}

func (t *timer) stopLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
}

func (t *timer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (c *Collection) registerTimer() {
	const lib = "Timer"
	t := c.timer

	c.method(lib, "Pause", func(context.Context, []vm.Value) (vm.Value, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.paused = true
		t.stopLocked()
		return nil, nil
	})
	c.method(lib, "Resume", func(context.Context, []vm.Value) (vm.Value, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.paused = false
		t.restart()
		return nil, nil
	})
	c.property(lib, "Interval",
		func() vm.Value {
			t.mu.Lock()
			defer t.mu.Unlock()
			return vm.NumberFromInt(t.interval.Milliseconds())
		},
		func(v vm.Value) error {
			ms := integer(v)
			if ms < 0 {
				return fmt.Errorf("interval must not be negative, got %d", ms)
			}
			t.mu.Lock()
			defer t.mu.Unlock()
			t.interval = time.Duration(ms) * time.Millisecond
			t.restart()
			return nil
		})
}
