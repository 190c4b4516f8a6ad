// Package clockengine derives the read-only GameState view and executes
// every lifecycle transition (start/stop/resume/restart/reset/
// updateParams) as one locked transaction against the game_status
// singleton, grounded on the teacher's locked-row pattern in
// game_player_store.go.
package clockengine

import (
	"context"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type Engine struct {
	store  *store.Store
	cache  *script.Cache
	log    *logrus.Entry
}

func New(st *store.Store, cache *script.Cache, log *logrus.Entry) *Engine {
	return &Engine{store: st, cache: cache, log: log}
}

// Derive computes the read-only GameState from a GameStatus snapshot
// (spec §4.1). now is injected so tests can exercise every clamp without
// sleeping.
func Derive(gs *models.GameStatus, now time.Time) models.GameState {
	state := models.GameState{
		IsStarted:         gs.IsStarted,
		TotalDays:         gs.TotalDays,
		TimeRatio:         gs.TimeRatio,
		InitialPrice:      gs.InitialPrice,
		InitialCash:       gs.InitialCash,
		MaxLeverage:       gs.MaxLeverage,
		DailyInterestRate: gs.DailyInterestRate,
		MaxLoanAmount:     gs.MaxLoanAmount,
	}

	if gs.GameStartTime == nil {
		return state
	}

	ref := now
	if gs.PausedAt != nil {
		ref = *gs.PausedAt
	}

	elapsed := int64(ref.Sub(*gs.GameStartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	day := elapsed/gs.TimeRatio + 1
	if int(day) > gs.TotalDays {
		day = int64(gs.TotalDays)
	}
	state.CurrentDay = int(day)

	secondInDay := elapsed % gs.TimeRatio
	state.SecondInDay = secondInDay

	secondsToNext := gs.TimeRatio - secondInDay
	if state.CurrentDay >= gs.TotalDays {
		secondsToNext = 0
	}
	state.SecondsToNextDay = secondsToNext

	return state
}

// Start clears pausedAt, anchors gameStartTime=now, resets broadcast
// flags and per-user daily quotas, then reloads the script cache (spec
// §4.1 "start").
func (e *Engine) Start(ctx context.Context, now time.Time, actorUserID int64) error {
	err := e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}

		gs.PausedAt = nil
		start := now
		gs.GameStartTime = &start
		gs.IsStarted = true

		if err := e.store.UpdateGameStatus(ctx, tx, gs); err != nil {
			return err
		}
		if err := e.store.ClearBroadcastFlags(ctx, tx); err != nil {
			return err
		}
		if err := e.store.ResetUserDailyQuotas(ctx, tx); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "START", "game_status", "1", "")
	})
	if err != nil {
		return err
	}
	return e.cache.Reload(ctx, e.store)
}

// Stop freezes the clock at now without touching any user balance (spec
// §4.1 "stop").
func (e *Engine) Stop(ctx context.Context, now time.Time, actorUserID int64) error {
	return e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		gs.IsStarted = false
		gs.PausedAt = &now
		if err := e.store.UpdateGameStatus(ctx, tx, gs); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "STOP", "game_status", "1", "")
	})
}

// Resume requires a paused, stopped game; it shifts gameStartTime
// forward by the pause duration so elapsed in-game time is unaffected
// (spec §4.1 "resume").
func (e *Engine) Resume(ctx context.Context, now time.Time, actorUserID int64) error {
	return e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if gs.PausedAt == nil || gs.IsStarted {
			return apperr.New(apperr.KindPrecondition, "game is not paused")
		}
		pauseDuration := now.Sub(*gs.PausedAt)
		shifted := gs.GameStartTime.Add(pauseDuration)
		gs.GameStartTime = &shifted
		gs.PausedAt = nil
		gs.IsStarted = true
		if err := e.store.UpdateGameStatus(ctx, tx, gs); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "RESUME", "game_status", "1", "")
	})
}

// Restart requires a stopped game; it returns every user to their
// starting balances, clears every contract and broadcast flag, and
// reloads the script cache, but leaves the script timeline itself intact
// (spec §4.1 "restart").
func (e *Engine) Restart(ctx context.Context, actorUserID int64) error {
	err := e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if gs.IsStarted {
			return apperr.New(apperr.KindPrecondition, "game must be stopped to restart")
		}
		if err := e.store.ResetAllUserBalances(ctx, tx, gs.InitialCash); err != nil {
			return err
		}
		if err := e.store.DeleteAllContracts(ctx, tx); err != nil {
			return err
		}
		if err := e.store.ClearBroadcastFlags(ctx, tx); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "RESTART", "game_status", "1", "")
	})
	if err != nil {
		return err
	}
	return e.cache.Reload(ctx, e.store)
}

// Reset requires a stopped game; it wipes the whole run — contracts,
// script timeline, events, and every non-admin user other than the
// caller — and restores GameStatus to its factory defaults (spec §4.1
// "reset"). Contract orders are deleted before users to satisfy the FK
// (spec §9 Open Question d).
func (e *Engine) Reset(ctx context.Context, actorUserID int64) error {
	err := e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if gs.IsStarted {
			return apperr.New(apperr.KindPrecondition, "game must be stopped to reset")
		}
		if err := e.store.DeleteAllContracts(ctx, tx); err != nil {
			return err
		}
		if err := e.store.TruncateScriptDays(ctx, tx); err != nil {
			return err
		}
		if err := e.store.DeleteAllEventsTx(ctx, tx); err != nil {
			return err
		}
		if err := e.store.DeleteUsersExcept(ctx, tx, actorUserID); err != nil {
			return err
		}
		def := models.DefaultGameStatus()
		if err := e.store.UpdateGameStatus(ctx, tx, def); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "RESET", "game_status", "1", "")
	})
	if err != nil {
		return err
	}
	return e.cache.Reload(ctx, e.store)
}

// UpdateTimeRatio rebases gameStartTime so the current in-game day and
// remaining seconds-within-day survive a mid-run ratio change, truncating
// to newRatio−1 if the old remainder would overshoot the new ratio (spec
// §4.1 "updateParams").
func (e *Engine) UpdateTimeRatio(ctx context.Context, now time.Time, newRatio int64, actorUserID int64) error {
	return e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if gs.GameStartTime == nil {
			gs.TimeRatio = newRatio
			if err := e.store.UpdateGameStatus(ctx, tx, gs); err != nil {
				return err
			}
			return e.store.WriteAudit(ctx, actorUserID, "UPDATE_PARAMS", "game_status", "1", "timeRatio")
		}

		ref := now
		if gs.PausedAt != nil {
			ref = *gs.PausedAt
		}
		elapsed := int64(ref.Sub(*gs.GameStartTime).Seconds())
		currentDay := elapsed / gs.TimeRatio
		remaining := gs.TimeRatio - elapsed%gs.TimeRatio
		if remaining > newRatio {
			remaining = newRatio - 1
		}

		newElapsed := currentDay*newRatio + (newRatio - remaining)
		shiftedStart := ref.Add(-time.Duration(newElapsed) * time.Second)
		gs.GameStartTime = &shiftedStart
		gs.TimeRatio = newRatio

		if err := e.store.UpdateGameStatus(ctx, tx, gs); err != nil {
			return err
		}
		return e.store.WriteAudit(ctx, actorUserID, "UPDATE_PARAMS", "game_status", "1", "timeRatio")
	})
}
