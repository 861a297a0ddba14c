package interview

import (
	"sync"
	"time"
)

// AnswerTimer drives the per-answer countdown. It owns a single tick
// source; one tick decrements the remaining seconds by one, and at zero
// the timer disarms itself and fires the expiry callback. Arm always
// resets to the full duration. Stop tears the tick source down completely
// so a stale tick can never decrement a later countdown.
type AnswerTimer struct {
	interval  time.Duration
	onTick    func(remaining int)
	onExpired func()

	mu        sync.Mutex
	remaining int
	active    bool
	gen       uint64
	stopCh    chan struct{}
}

// NewAnswerTimer creates a timer ticking at the given interval. Both
// callbacks are optional and are invoked without the timer lock held, so
// they may call back into the timer.
func NewAnswerTimer(interval time.Duration, onTick func(remaining int), onExpired func()) *AnswerTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &AnswerTimer{
		interval:  interval,
		onTick:    onTick,
		onExpired: onExpired,
	}
}

// Arm resets the countdown to seconds and starts ticking. Re-arming an
// active timer restarts it from the new duration.
func (t *AnswerTimer) Arm(seconds int) {
	if seconds <= 0 {
		return
	}
	t.mu.Lock()
	t.stopLocked()
	t.remaining = seconds
	t.active = true
	t.gen++
	gen := t.gen
	stopCh := make(chan struct{})
	t.stopCh = stopCh
	t.mu.Unlock()

	go t.run(gen, stopCh)
}

func (t *AnswerTimer) run(gen uint64, stopCh chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !t.tick(gen) {
				return
			}
		}
	}
}

// tick applies one decrement. It returns false once this run is stale or
// the countdown reached zero.
func (t *AnswerTimer) tick(gen uint64) bool {
	t.mu.Lock()
	if !t.active || gen != t.gen {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	remaining := t.remaining
	expired := remaining <= 0
	if expired {
		// Disarm before the callback so Remaining reads 0 and a re-Arm
		// from inside the callback starts a fresh generation.
		t.active = false
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(remaining)
	}
	if expired {
		if t.onExpired != nil {
			t.onExpired()
		}
		return false
	}
	return true
}

// Stop disarms the countdown and tears down its tick goroutine. It is
// idempotent and safe to call on a timer that was never armed. The last
// remaining value is preserved for elapsed-time accounting.
func (t *AnswerTimer) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
}

func (t *AnswerTimer) stopLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
	t.active = false
	t.gen++
}

// Remaining returns the seconds left on the countdown. After expiry it
// returns 0; after Stop it returns whatever was left when stopped.
func (t *AnswerTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining < 0 {
		return 0
	}
	return t.remaining
}

// Active reports whether the countdown is currently armed.
func (t *AnswerTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
