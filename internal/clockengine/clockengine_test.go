package clockengine

import (
	"testing"
	"time"

	"github.com/avvvet/marketday/internal/models"
	"github.com/shopspring/decimal"
)

func baseStatus() *models.GameStatus {
	return &models.GameStatus{
		TimeRatio:    600,
		TotalDays:    120,
		InitialPrice: decimal.NewFromInt(10),
		InitialCash:  decimal.NewFromInt(10000),
		MaxLeverage:  10,
	}
}

func TestDeriveBeforeStart(t *testing.T) {
	gs := baseStatus()
	state := Derive(gs, time.Now())
	if state.CurrentDay != 0 {
		t.Fatalf("expected day 0 before start, got %d", state.CurrentDay)
	}
	if state.IsStarted {
		t.Fatalf("expected not started")
	}
}

func TestDeriveMidDay(t *testing.T) {
	gs := baseStatus()
	gs.IsStarted = true
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs.GameStartTime = &start

	now := start.Add(90 * time.Second)
	state := Derive(gs, now)
	if state.CurrentDay != 1 {
		t.Fatalf("expected day 1, got %d", state.CurrentDay)
	}
	if state.SecondInDay != 90 {
		t.Fatalf("expected secondInDay 90, got %d", state.SecondInDay)
	}
	if state.SecondsToNextDay != 510 {
		t.Fatalf("expected secondsToNextDay 510, got %d", state.SecondsToNextDay)
	}
}

func TestDeriveDayBoundary(t *testing.T) {
	gs := baseStatus()
	gs.IsStarted = true
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs.GameStartTime = &start

	now := start.Add(time.Duration(gs.TimeRatio) * time.Second)
	state := Derive(gs, now)
	if state.CurrentDay != 2 {
		t.Fatalf("expected day 2 right at the boundary, got %d", state.CurrentDay)
	}
	if state.SecondInDay != 0 {
		t.Fatalf("expected secondInDay 0 at boundary, got %d", state.SecondInDay)
	}
}

func TestDeriveClampsAtTotalDays(t *testing.T) {
	gs := baseStatus()
	gs.TotalDays = 3
	gs.IsStarted = true
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs.GameStartTime = &start

	now := start.Add(time.Duration(gs.TimeRatio*10) * time.Second)
	state := Derive(gs, now)
	if state.CurrentDay != gs.TotalDays {
		t.Fatalf("expected day clamped to %d, got %d", gs.TotalDays, state.CurrentDay)
	}
	if state.SecondsToNextDay != 0 {
		t.Fatalf("expected no next-day countdown on the final day, got %d", state.SecondsToNextDay)
	}
}

func TestDeriveUsesPausedAtAsReferenceTime(t *testing.T) {
	gs := baseStatus()
	gs.IsStarted = false
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs.GameStartTime = &start
	pausedAt := start.Add(200 * time.Second)
	gs.PausedAt = &pausedAt

	// now is far past pausedAt; Derive must freeze at pausedAt, not now.
	now := start.Add(10000 * time.Second)
	state := Derive(gs, now)
	if state.SecondInDay != 200 {
		t.Fatalf("expected frozen secondInDay 200, got %d", state.SecondInDay)
	}
}

func TestDeriveNeverReturnsNegativeElapsed(t *testing.T) {
	gs := baseStatus()
	gs.IsStarted = true
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs.GameStartTime = &start

	// A clock skew or a stale read could hand Derive a `now` before the
	// anchor; elapsed must clamp to 0 rather than go negative.
	now := start.Add(-5 * time.Second)
	state := Derive(gs, now)
	if state.CurrentDay != 1 || state.SecondInDay != 0 {
		t.Fatalf("expected day 1 secondInDay 0 for pre-anchor now, got day=%d second=%d", state.CurrentDay, state.SecondInDay)
	}
}
