package debounce

import (
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	fired := make(chan struct{})
	Schedule(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduled action never fired")
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	fired := make(chan struct{}, 1)
	tok := Schedule(50*time.Millisecond, func() { fired <- struct{}{} })
	Cancel(tok)

	select {
	case <-fired:
		t.Fatalf("cancelled action fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	tok := Schedule(time.Hour, func() {})
	Cancel(tok)
	Cancel(tok)
	Cancel(nil)
}
