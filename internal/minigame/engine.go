// Package minigame implements the three mini-game state machines
// (RedEnvelope, Quiz, Minority) that share one runtime slot (spec §4.5).
// The ticker-driven call loop in the teacher's cmd/callersvc and the
// one-shot FOR UPDATE claim-validation in cmd/claimsvc are the grounding
// for, respectively, armed phase timers and the single-transaction
// settlement writes below (SPEC_FULL.md §4.5).
package minigame

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/marketday/configs"
	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LeaderboardProvider is injected rather than imported directly so
// minigame doesn't need to know about settlement's price-sourcing
// (spec §9 design note (open question) — kept as an interface seam
// rather than resolved into a concrete dependency).
type LeaderboardProvider interface {
	TopLeaderboard(ctx context.Context, price decimal.Decimal, limit int) ([]comm.LeaderboardRow, error)
	GetGameStatus(ctx context.Context) (*models.GameStatus, error)
}

type PriceSource interface {
	CurrentPrice(ctx context.Context) decimal.Decimal
}

// Engine owns the single runtime slot. Every read-modify-write against
// runtime happens under mu, matching spec §5's "all in-memory mutations
// to the mini-game state must be performed while holding the mini-game
// mutex".
type Engine struct {
	mu      sync.Mutex
	runtime *models.MiniGameRuntime
	timer   *time.Timer

	store   *store.Store
	hub     *bus.Hub
	board   LeaderboardProvider
	prices  PriceSource
	balance config.GameBalance
	log     *logrus.Entry
}

func New(st *store.Store, hub *bus.Hub, board LeaderboardProvider, prices PriceSource, balance config.GameBalance, log *logrus.Entry) *Engine {
	return &Engine{
		runtime: models.IdleRuntime(),
		store:   st,
		hub:     hub,
		board:   board,
		prices:  prices,
		balance: balance,
		log:     log,
	}
}

// Rehydrate loads the persisted runtime snapshot on boot and re-arms
// whatever timer was pending from endTime − now, firing immediately if
// that's already in the past (spec §4.5 "rehydration").
func (e *Engine) Rehydrate(ctx context.Context) error {
	r, err := e.store.GetMiniGameRuntime(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.runtime = r
	e.mu.Unlock()

	if r.GameType == models.MiniGameNone || r.Phase == models.PhaseIdle || r.Phase == models.PhaseResult {
		return nil
	}
	e.armTimer(time.Until(r.EndTime), e.onTimerForPhase(r.GameType, r.Phase))
	return nil
}

func (e *Engine) armTimer(d time.Duration, fn func()) {
	if e.timer != nil {
		e.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	e.timer = time.AfterFunc(d, fn)
}

func (e *Engine) cancelTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) onTimerForPhase(gameType models.MiniGameType, phase models.MiniGamePhase) func() {
	switch gameType {
	case models.MiniGameRedEnvelope:
		if phase == models.PhaseCountdown {
			return func() { e.redEnvelopeEnterGaming(context.Background()) }
		}
	case models.MiniGameQuiz:
		switch phase {
		case models.PhasePrepare:
			return func() { e.quizEnterCountdown(context.Background()) }
		case models.PhaseCountdown:
			return func() { e.quizEnterGaming(context.Background()) }
		case models.PhaseGaming:
			return func() { e.quizSettle(context.Background()) }
		}
	case models.MiniGameMinority:
		switch phase {
		case models.PhasePrepare:
			return func() { e.minorityEnterCountdown(context.Background()) }
		case models.PhaseCountdown:
			return func() { e.minorityEnterGaming(context.Background()) }
		case models.PhaseGaming:
			return func() { e.minoritySettle(context.Background()) }
		}
	}
	return func() {}
}

func (e *Engine) persist(ctx context.Context) error {
	return e.store.SaveMiniGameRuntime(ctx, e.runtime)
}

func (e *Engine) broadcastSync() {
	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameSync, e.runtime))
}

// HandlePlayerAction dispatches a non-admin player's in-game action
// (GRAB_PACKET, SCRATCH_COMPLETE, SUBMIT_ANSWER, PLACE_BET). Anything
// else is ignored with an audit entry (spec §4.5 "Non-admin senders are
// ignored with an audit log" — applied here to unrecognised actions from
// a player too).
func (e *Engine) HandlePlayerAction(ctx context.Context, userID int64, action string, data json.RawMessage) error {
	e.mu.Lock()
	gameType, phase := e.runtime.GameType, e.runtime.Phase
	e.mu.Unlock()

	switch {
	case gameType == models.MiniGameRedEnvelope && action == "GRAB_PACKET" && phase == models.PhaseGaming:
		var req struct {
			PacketIndex int `json:"packetIndex"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid grab payload")
		}
		return e.redEnvelopeGrab(ctx, userID, req.PacketIndex)
	case gameType == models.MiniGameRedEnvelope && action == "SCRATCH_COMPLETE" && phase == models.PhaseReveal:
		return e.redEnvelopeScratchComplete(ctx, userID)
	case gameType == models.MiniGameQuiz && action == "SUBMIT_ANSWER" && phase == models.PhaseGaming:
		var req struct {
			Answer models.QuizAnswer `json:"answer"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid answer payload")
		}
		return e.quizSubmitAnswer(ctx, userID, req.Answer)
	case gameType == models.MiniGameMinority && action == "PLACE_BET" && phase == models.PhaseGaming:
		var req struct {
			Option models.QuizAnswer `json:"option"`
			Amount decimal.Decimal   `json:"amount"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid bet payload")
		}
		return e.minorityPlaceBet(ctx, userID, req.Option, req.Amount)
	default:
		_ = e.store.WriteAudit(ctx, userID, "IGNORED_MINIGAME_ACTION", "minigame", action, "phase mismatch or unknown action")
		return apperr.New(apperr.KindPrecondition, "action not valid in current phase")
	}
}

// HandleAdminCommand dispatches RESET/INIT/START_SHUFFLE/START_GRAB/
// REVEAL_RESULT/FORCE_REVEAL. Non-admin callers are rejected by the
// caller (httpapi/bus) before this is ever invoked; HandleAdminCommand
// itself still writes the audit trail (spec §4.5).
func (e *Engine) HandleAdminCommand(ctx context.Context, actorUserID int64, command string, data json.RawMessage) error {
	defer func() {
		_ = e.store.WriteAudit(ctx, actorUserID, "ADMIN_MINIGAME_"+command, "minigame", "", "")
	}()

	if command == "RESET" {
		return e.reset(ctx)
	}

	var req struct {
		GameType models.MiniGameType `json:"gameType"`
	}
	_ = json.Unmarshal(data, &req)

	switch req.GameType {
	case models.MiniGameRedEnvelope:
		return e.dispatchRedEnvelope(ctx, command, data)
	case models.MiniGameQuiz:
		return e.dispatchQuiz(ctx, command, data)
	case models.MiniGameMinority:
		return e.dispatchMinority(ctx, command, data)
	default:
		e.mu.Lock()
		gt := e.runtime.GameType
		e.mu.Unlock()
		switch gt {
		case models.MiniGameRedEnvelope:
			return e.dispatchRedEnvelope(ctx, command, data)
		case models.MiniGameQuiz:
			return e.dispatchQuiz(ctx, command, data)
		case models.MiniGameMinority:
			return e.dispatchMinority(ctx, command, data)
		}
		return apperr.New(apperr.KindValidation, "no active mini-game and no gameType given")
	}
}

// creditCash locks the target user row in its own transaction, credits
// amount to cash, and pushes a fresh ASSETS_UPDATE — the shared write
// path every mini-game payout goes through.
func (e *Engine) creditCash(ctx context.Context, userID int64, amount decimal.Decimal) error {
	var u *models.User
	err := e.store.WithTx(ctx, func(tx pgx.Tx) error {
		found, err := e.store.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		found.Cash = found.Cash.Add(amount)
		if err := e.store.UpdateUserBalances(ctx, tx, found); err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		return err
	}
	e.hub.SendToUser(userID, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
		Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
	}))
	return nil
}

// debitCashOrDebt locks the target user row and either subtracts amount
// from cash, or converts the shortfall to debt if cash can't cover it
// (spec §4.5 Minority "if cash ≥ s then cash −= s; else debt += (s −
// cash), cash = 0").
func (e *Engine) debitCashOrDebt(ctx context.Context, userID int64, amount decimal.Decimal) error {
	var u *models.User
	err := e.store.WithTx(ctx, func(tx pgx.Tx) error {
		found, err := e.store.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if found.Cash.GreaterThanOrEqual(amount) {
			found.Cash = found.Cash.Sub(amount)
		} else {
			found.Debt = found.Debt.Add(amount.Sub(found.Cash))
			found.Cash = decimal.Zero
		}
		if err := e.store.UpdateUserBalances(ctx, tx, found); err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		return err
	}
	e.hub.SendToUser(userID, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
		Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
	}))
	return nil
}

func (e *Engine) reset(ctx context.Context) error {
	e.mu.Lock()
	e.cancelTimer()
	e.runtime = models.IdleRuntime()
	err := e.persist(ctx)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.broadcastSync()
	return nil
}
