package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// MemoryStore keeps the path tree in process memory. It implements the
// same contract as MongoStore and backs tests and local runs without a
// database.
type MemoryStore struct {
	mu       sync.Mutex
	nodes    map[string]memNode
	counters map[string]int64
	hub      *hub
}

type memNode struct {
	parent string
	key    string
	seq    int64
	value  []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[string]memNode),
		counters: make(map[string]int64),
		hub:      newHub(),
	}
}

func (s *MemoryStore) Get(_ context.Context, path string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[path]; ok {
		return NewSnapshot(n.value), nil
	}
	for p := range s.nodes {
		if isUnder(p, path) {
			return NewSnapshot([]byte("{}")), nil
		}
	}
	return Snapshot{}, nil
}

func (s *MemoryStore) GetChildren(_ context.Context, path string) ([]Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childrenLocked(path), nil
}

func (s *MemoryStore) childrenLocked(path string) []Child {
	var children []Child
	for _, n := range s.nodes {
		if n.parent == path {
			children = append(children, Child{Key: n.key, Seq: n.seq, Snapshot: NewSnapshot(n.value)})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Seq < children[j].Seq })
	return children
}

func (s *MemoryStore) Set(_ context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	s.mu.Lock()
	n, existed := s.nodes[path]
	if !existed {
		s.counters[parentOf(path)]++
		n = memNode{parent: parentOf(path), key: keyOf(path), seq: s.counters[parentOf(path)]}
	}
	n.value = data
	s.nodes[path] = n
	s.mu.Unlock()

	s.hub.dispatch(mutation{path: path, parent: n.parent, key: n.key, seq: n.seq, data: data, created: !existed})
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	merged := map[string]interface{}{}
	if n, ok := s.nodes[path]; ok {
		if err := json.Unmarshal(n.value, &merged); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to decode current value at %s: %w", path, err)
		}
	}
	s.mu.Unlock()

	for k, v := range fields {
		merged[k] = v
	}
	return s.Set(ctx, path, merged)
}

func (s *MemoryStore) Push(_ context.Context, path string, value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	s.mu.Lock()
	s.counters[path]++
	seq := s.counters[path]
	key := "k" + strconv.FormatInt(seq, 10)
	s.nodes[path+"/"+key] = memNode{parent: path, key: key, seq: seq, value: data}
	s.mu.Unlock()

	s.hub.dispatch(mutation{path: path + "/" + key, parent: path, key: key, seq: seq, data: data, created: true})
	return key, nil
}

func (s *MemoryStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.nodes, path)
	for p := range s.nodes {
		if isUnder(p, path) {
			delete(s.nodes, p)
		}
	}
	s.mu.Unlock()

	s.hub.dispatch(mutation{path: path, parent: parentOf(path), key: keyOf(path)})
	return nil
}

func (s *MemoryStore) SubscribeChildAdded(path string, fn ChildAddedFunc) (*Subscription, error) {
	sub := &Subscription{
		path:       path,
		kind:       subChildAdded,
		onChild:    fn,
		deliveries: make(chan delivery, subscriptionBuffer),
	}
	err := s.hub.register(sub, func() ([]Child, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.childrenLocked(path), nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *MemoryStore) SubscribeValue(path string, fn ValueFunc) (*Subscription, error) {
	sub := &Subscription{
		path:       path,
		kind:       subValue,
		onValue:    fn,
		assemble:   s.assembleValue,
		deliveries: make(chan delivery, subscriptionBuffer),
	}
	if err := s.hub.register(sub, nil); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *MemoryStore) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.hub.unregister(sub)
}

func (s *MemoryStore) assembleValue(path string) map[string]Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]Snapshot{}
	for _, c := range s.childrenLocked(path) {
		out[c.Key] = c.Snapshot
	}
	return out
}
