// Package script holds the deterministic per-day price/news timeline:
// a copy-on-reload in-memory cache backed by the script_days table, and
// the generator that produces the timeline from admin-authored events.
package script

import (
	"context"
	"sync/atomic"

	"github.com/avvvet/marketday/internal/models"
)

// Cache is a copy-on-reload snapshot of the script timeline (spec §5
// "Script cache is copy-on-reload; concurrent readers may observe an
// older snapshot across a reload — never a torn one"). Readers take the
// pointer once and never see a partially-updated slice.
type Cache struct {
	snapshot atomic.Pointer[snapshotData]
}

type snapshotData struct {
	byDay map[int]*models.ScriptDay
}

func NewCache() *Cache {
	c := &Cache{}
	c.snapshot.Store(&snapshotData{byDay: map[int]*models.ScriptDay{}})
	return c
}

type storeReader interface {
	ListScriptDays(ctx context.Context) ([]*models.ScriptDay, error)
}

// Reload replaces the whole snapshot atomically from the store (spec
// §4.1 "reload script cache" on start/restart/reset, §4.7 generator).
func (c *Cache) Reload(ctx context.Context, st storeReader) error {
	days, err := st.ListScriptDays(ctx)
	if err != nil {
		return err
	}
	next := &snapshotData{byDay: make(map[int]*models.ScriptDay, len(days))}
	for _, d := range days {
		next.byDay[d.Day] = d
	}
	c.snapshot.Store(next)
	return nil
}

// Day returns the cached row for day, or nil if none was generated for
// it (day 0, or beyond totalDays).
func (c *Cache) Day(day int) *models.ScriptDay {
	return c.snapshot.Load().byDay[day]
}

// MarkBroadcasted flips the in-memory copy's IsBroadcasted flag to match
// a store write, without a full reload (spec §4.2 step 3: "atomically
// mark isBroadcasted=true in both store and script cache"). It builds
// and swaps a whole new snapshot so concurrent readers never see a torn
// map (spec §5).
func (c *Cache) MarkBroadcasted(day int) {
	old := c.snapshot.Load()
	d, ok := old.byDay[day]
	if !ok {
		return
	}
	next := &snapshotData{byDay: make(map[int]*models.ScriptDay, len(old.byDay))}
	for k, v := range old.byDay {
		next.byDay[k] = v
	}
	cp := *d
	cp.IsBroadcasted = true
	next.byDay[day] = &cp
	c.snapshot.Store(next)
}

// History returns days 1..upToDay inclusive, each gated through
// Visible() so an unbroadcast headline never leaks (spec §8 I6).
func (c *Cache) History(upToDay int) []models.ScriptDay {
	snap := c.snapshot.Load()
	out := make([]models.ScriptDay, 0, upToDay)
	for day := 1; day <= upToDay; day++ {
		if d, ok := snap.byDay[day]; ok {
			out = append(out, d.Visible())
		}
	}
	return out
}
