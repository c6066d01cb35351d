// Package store is the client for the realtime data store backing the
// dashboard. Records live at slash-separated paths ("users/<uid>",
// "chats/<chatId>/messages/<messageId>"). Reads are one-shot snapshots;
// live consumers register subscriptions that replay persisted children
// in append order and then stream new arrivals.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var ErrAbsent = errors.New("store: no value at path")

// Snapshot is the result of a one-shot read. A zero Snapshot reports
// absence.
type Snapshot struct {
	data []byte
}

func NewSnapshot(data []byte) Snapshot {
	return Snapshot{data: data}
}

func (s Snapshot) Exists() bool {
	return s.data != nil
}

func (s Snapshot) Decode(v interface{}) error {
	if s.data == nil {
		return ErrAbsent
	}
	return json.Unmarshal(s.data, v)
}

// Child is one direct child of a path. Seq is the backend append order,
// authoritative over any timestamp carried inside the value.
type Child struct {
	Key      string
	Seq      int64
	Snapshot Snapshot
}

type ChildAddedFunc func(c Child)

// ValueFunc receives the direct children of the subscribed path as an
// authoritative whole-map snapshot. Each delivery replaces the previous
// view; no diffing.
type ValueFunc func(children map[string]Snapshot)

// Store is the backend contract consumed by the dashboard. All
// implementations must dispatch subscription callbacks off the caller's
// goroutine so a slow consumer never blocks a writer.
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	GetChildren(ctx context.Context, path string) ([]Child, error)
	Set(ctx context.Context, path string, value interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Push(ctx context.Context, path string, value interface{}) (string, error)
	Remove(ctx context.Context, path string) error
	SubscribeChildAdded(path string, fn ChildAddedFunc) (*Subscription, error)
	SubscribeValue(path string, fn ValueFunc) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func keyOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}
	return path[i+1:]
}

func isUnder(path, prefix string) bool {
	return strings.HasPrefix(path, prefix+"/")
}
