// Package eventstore journals daemon events in SQLite and rebuilds per-tag
// usage statistics from them.
package eventstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// TagUsage summarizes one tag's history.
type TagUsage struct {
	TagID          string    `json:"tag_id"`
	Insertions     int       `json:"insertions"`
	Launches       int       `json:"launches"`
	LaunchFailures int       `json:"launch_failures"`
	LastSeen       time.Time `json:"last_seen"`
}

// UsageProjection maintains per-tag usage counters, reconstructed from the
// journal and updated live as events are recorded.
type UsageProjection struct {
	mu    sync.RWMutex
	store Store
	tags  map[string]*TagUsage
}

// NewUsageProjection creates a projection backed by store (may be nil).
func NewUsageProjection(store Store) *UsageProjection {
	return &UsageProjection{store: store, tags: make(map[string]*TagUsage)}
}

// Rebuild reconstructs the projection from every journaled record.
func (p *UsageProjection) Rebuild(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	entries, err := p.store.All(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = make(map[string]*TagUsage)
	for _, e := range entries {
		p.applyLocked(e.Record)
	}
	return nil
}

// Apply folds a single record into the projection.
func (p *UsageProjection) Apply(r Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(r)
}

func (p *UsageProjection) applyLocked(r Record) {
	if r.TagID == "" {
		return
	}
	u, ok := p.tags[r.TagID]
	if !ok {
		u = &TagUsage{TagID: r.TagID}
		p.tags[r.TagID] = u
	}
	switch r.Type {
	case TypeTagInserted:
		u.Insertions++
	case TypeAppLaunched:
		u.Launches++
	case TypeAppLaunchFailed:
		u.LaunchFailures++
	}
	if r.At.After(u.LastSeen) {
		u.LastSeen = r.At
	}
}

// Get returns the usage of tagID.
func (p *UsageProjection) Get(tagID string) (TagUsage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.tags[tagID]
	if !ok {
		return TagUsage{}, false
	}
	return *u, true
}

// Top returns up to n tags ordered by launches, then insertions, then id.
// n <= 0 returns all.
func (p *UsageProjection) Top(n int) []TagUsage {
	p.mu.RLock()
	out := make([]TagUsage, 0, len(p.tags))
	for _, u := range p.tags {
		out = append(out, *u)
	}
	p.mu.RUnlock()

	slices.SortFunc(out, func(a, b TagUsage) int {
		if a.Launches != b.Launches {
			return b.Launches - a.Launches
		}
		if a.Insertions != b.Insertions {
			return b.Insertions - a.Insertions
		}
		return strings.Compare(a.TagID, b.TagID)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
