package models

import "github.com/shopspring/decimal"

// ScriptDay is one row of the deterministic price/news timeline (spec
// §3). Title/news are pointers so a "silent" day (title=nil) round-trips
// cleanly through JSON and SQL NULLs.
type ScriptDay struct {
	Day            int             `json:"day"`
	Price          decimal.Decimal `json:"price"`
	Title          *string         `json:"title,omitempty"`
	News           *string         `json:"news,omitempty"`
	EffectiveTrend Trend           `json:"effectiveTrend"`
	PublishOffset  *int64          `json:"publishOffset,omitempty"`
	IsBroadcasted  bool            `json:"isBroadcasted"`
}

// HasNews reports whether this day carries a headline at all (spec §3:
// "either title=null (silent) or the tuple is complete").
func (s *ScriptDay) HasNews() bool {
	return s.Title != nil
}

// Visible applies the broadcast-gating invariant I6: a client only ever
// sees title/news once IsBroadcasted flips true.
func (s *ScriptDay) Visible() ScriptDay {
	if s.IsBroadcasted {
		return *s
	}
	cp := *s
	cp.Title = nil
	cp.News = nil
	return cp
}

// Event is one admin-authored script input (spec §3).
type Event struct {
	ID    int64  `json:"id"`
	Day   int    `json:"day"`
	Title string `json:"title"`
	News  *string `json:"news,omitempty"`
	Trend Trend  `json:"trend"`
}
