package summarizenode

import (
	"context"
	"sync"
	"time"

	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
)

// Watchdog cancels an operation when no chunk arrives for the idle timeout.
// A nil Watchdog or a zero timeout disables it.
type Watchdog struct {
	timeout time.Duration
	cancel  context.CancelCauseFunc

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewWatchdog(timeout time.Duration, cancel context.CancelCauseFunc) *Watchdog {
	if timeout <= 0 || cancel == nil {
		return nil
	}
	return &Watchdog{timeout: timeout, cancel: cancel}
}

// Kick re-arms the timer.
func (w *Watchdog) Kick() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.timeout, w.fire)
		return
	}
	w.timer.Reset(w.timeout)
}

func (w *Watchdog) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// fire cancels under the lock so that once Stop returns no cancel can follow.
func (w *Watchdog) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.cancel(contractx.ErrIdleTimeout)
	}
}
