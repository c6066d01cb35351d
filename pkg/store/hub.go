package store

import (
	"log"
	"sync"
)

type subKind int

const (
	subChildAdded subKind = iota
	subValue
)

// Subscription is the handle returned by Subscribe* and required by
// Unsubscribe. Owning components acquire it on open and must release it
// on every close path.
type Subscription struct {
	path string
	kind subKind

	onChild ChildAddedFunc
	onValue ValueFunc

	// assemble re-reads the subscribed subtree for value deliveries.
	assemble func(path string) map[string]Snapshot

	deliveries chan delivery
	closeOnce  sync.Once

	// replay holds the children persisted before registration. The
	// drain goroutine delivers them ahead of anything queued live.
	replay []Child

	// lastSeq is the highest child seq accounted for so far; guarded by
	// the hub mutex. Replay and live dispatch share it so a child is
	// never delivered twice.
	lastSeq int64
}

type delivery struct {
	child   Child
	refresh bool
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.deliveries) })
}

func (s *Subscription) run() {
	for _, c := range s.replay {
		s.onChild(c)
	}
	s.replay = nil
	for d := range s.deliveries {
		if d.refresh {
			s.onValue(s.assemble(s.path))
		} else {
			s.onChild(d.child)
		}
	}
}

// mutation describes one committed write, dispatched to subscribers.
type mutation struct {
	path    string
	parent  string
	key     string
	seq     int64
	data    []byte
	created bool
}

// hub fans out committed mutations to registered subscriptions. Each
// subscription drains its own buffered channel on a dedicated
// goroutine; a full buffer drops the delivery rather than blocking the
// writer.
type hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]struct{})}
}

// register installs the subscription and stages its initial
// deliveries. The replay fetch runs under the hub lock: a write
// committed before registration is seen by the fetch, while its
// dispatch (if still pending) is deduplicated by lastSeq. No child is
// missed or delivered twice across the replay/live boundary. Delivery
// itself happens on the drain goroutine, so a thread with more history
// than the channel buffer never blocks registration.
func (h *hub) register(sub *Subscription, fetch func() ([]Child, error)) error {
	h.mu.Lock()
	switch sub.kind {
	case subChildAdded:
		replay, err := fetch()
		if err != nil {
			h.mu.Unlock()
			return err
		}
		if n := len(replay); n > 0 {
			sub.lastSeq = replay[n-1].Seq
		}
		sub.replay = replay
		h.subs[sub] = struct{}{}
	case subValue:
		// Initial whole-map delivery, matching the backend's
		// value-listener semantics.
		h.subs[sub] = struct{}{}
		sub.deliveries <- delivery{refresh: true}
	}
	h.mu.Unlock()
	go sub.run()
	return nil
}

func (h *hub) unregister(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		sub.close()
	}
	h.mu.Unlock()
}

func (h *hub) dispatch(m mutation) {
	h.mu.Lock()
	for sub := range h.subs {
		switch sub.kind {
		case subChildAdded:
			if !m.created || m.parent != sub.path || m.seq <= sub.lastSeq {
				continue
			}
			sub.lastSeq = m.seq
			h.enqueue(sub, delivery{child: Child{Key: m.key, Seq: m.seq, Snapshot: NewSnapshot(m.data)}})
		case subValue:
			if m.path != sub.path && !isUnder(m.path, sub.path) && !isUnder(sub.path, m.path) {
				continue
			}
			h.enqueue(sub, delivery{refresh: true})
		}
	}
	h.mu.Unlock()
}

func (h *hub) enqueue(sub *Subscription, d delivery) {
	select {
	case sub.deliveries <- d:
	default:
		log.Printf("[WARN] Subscription buffer full, dropping delivery for %s", sub.path)
	}
}
