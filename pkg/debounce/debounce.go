// Package debounce provides the single cancellable delayed-action
// primitive used across the dashboard (typing indicators and similar
// trailing-edge triggers).
package debounce

import (
	"sync"
	"time"
)

// Token identifies one scheduled action. Cancelling a token that has
// already fired or been cancelled is a no-op.
type Token struct {
	timer *time.Timer
	mu    sync.Mutex
	done  bool
}

// Schedule runs action after delay unless the token is cancelled first.
func Schedule(delay time.Duration, action func()) *Token {
	t := &Token{}
	t.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		fired := !t.done
		t.done = true
		t.mu.Unlock()
		if fired {
			action()
		}
	})
	return t
}

// Cancel stops the pending action. Safe on nil tokens.
func Cancel(t *Token) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
	t.timer.Stop()
}
