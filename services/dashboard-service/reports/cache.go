// Package reports owns the session's in-memory mirror of the report
// collection and the mutation entry points that write through to the
// backend store.
package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"maintenance-dashboard/pkg/store"
	"maintenance-dashboard/services/dashboard-service/models"
)

const reportsPath = "maintenance_reports"

// Cache mirrors the maintenance_reports collection. It is loaded once
// per session and mutated only through its own entry points; reads
// return copies so callers cannot alias the mirror.
type Cache struct {
	mu       sync.RWMutex
	st       store.Store
	reports  []models.Report
	index    map[string]int
	loadedAt int64
	onEvent  func(models.ReportEvent)

	now func() int64
}

func NewCache(st store.Store) *Cache {
	return &Cache{
		st:    st,
		index: map[string]int{},
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Load replaces the mirror with the backend's current collection.
func (c *Cache) Load(ctx context.Context) error {
	children, err := c.st.GetChildren(ctx, reportsPath)
	if err != nil {
		return fmt.Errorf("failed to load reports: %w", err)
	}

	reports := make([]models.Report, 0, len(children))
	index := make(map[string]int, len(children))
	for _, child := range children {
		var r models.Report
		if err := child.Snapshot.Decode(&r); err != nil {
			return fmt.Errorf("failed to decode report %s: %w", child.Key, err)
		}
		r.ReportID = child.Key
		index[child.Key] = len(reports)
		reports = append(reports, r)
	}

	c.mu.Lock()
	c.reports = reports
	c.index = index
	c.loadedAt = c.now()
	c.mu.Unlock()
	return nil
}

// All returns a copy of the mirrored collection.
func (c *Cache) All() []models.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Report, len(c.reports))
	copy(out, c.reports)
	return out
}

// Get returns the report with the given id.
func (c *Cache) Get(id string) (models.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return models.Report{}, false
	}
	return c.reports[i], true
}

// LoadedAt returns the epoch ms of the last Load, 0 if never loaded.
func (c *Cache) LoadedAt() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *Cache) apply(id string, mutate func(*models.Report)) {
	c.mu.Lock()
	if i, ok := c.index[id]; ok {
		mutate(&c.reports[i])
	}
	c.mu.Unlock()
}
