package minigame

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/shopspring/decimal"
)

type minorityBet struct {
	UserID int64              `json:"userId"`
	Option models.QuizAnswer  `json:"option"`
	Amount decimal.Decimal    `json:"amount"`
}

type minorityPayload struct {
	Question models.MinorityQuestion `json:"question"`
	Bets     []minorityBet           `json:"bets"`
}

func (e *Engine) dispatchMinority(ctx context.Context, command string, data json.RawMessage) error {
	switch command {
	case "INIT":
		return e.minorityInit(ctx, data)
	case "FORCE_REVEAL":
		go e.minoritySettle(context.Background())
		return nil
	default:
		return apperr.New(apperr.KindValidation, "unknown minority command")
	}
}

func (e *Engine) minorityInit(ctx context.Context, data json.RawMessage) error {
	var req struct {
		QuestionID int64 `json:"questionId"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid init payload")
	}
	questions, err := e.store.ListMinorityQuestions(ctx)
	if err != nil {
		return err
	}
	var question *models.MinorityQuestion
	for _, q := range questions {
		if q.ID == req.QuestionID {
			question = q
			break
		}
	}
	if question == nil {
		return apperr.New(apperr.KindNotFound, "minority question not found")
	}

	prepareDur := time.Duration(e.balance.MiniGame.MinorityPrepareSeconds) * time.Second

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimer()
	now := time.Now()
	e.runtime = &models.MiniGameRuntime{
		GameType:  models.MiniGameMinority,
		Phase:     models.PhasePrepare,
		StartTime: now,
		EndTime:   now.Add(prepareDur),
		Payload:   comm.MustMarshal(minorityPayload{Question: *question}),
	}
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.armTimer(prepareDur, func() { e.minorityEnterCountdown(context.Background()) })
	e.broadcastSync()
	return nil
}

func (e *Engine) minorityEnterCountdown(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameMinority || e.runtime.Phase != models.PhasePrepare {
		e.mu.Unlock()
		return
	}
	countdownDur := time.Duration(e.balance.MiniGame.MinorityCountdownSeconds) * time.Second
	now := time.Now()
	e.runtime.Phase = models.PhaseCountdown
	e.runtime.StartTime = now
	e.runtime.EndTime = now.Add(countdownDur)
	if err := e.persist(ctx); err != nil {
		e.log.WithError(err).Error("minigame: persist minority countdown")
	}
	e.armTimer(countdownDur, func() { e.minorityEnterGaming(context.Background()) })
	e.mu.Unlock()

	e.broadcastSync()
	e.runMinorityCountdown(e.balance.MiniGame.MinorityCountdownSeconds)
}

func (e *Engine) runMinorityCountdown(seconds int) {
	for n := seconds; n >= 0; n-- {
		e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameCountdown, comm.MiniGameCountdownPayload{Countdown: n}))
		if n > 0 {
			time.Sleep(time.Second)
		}
	}
}

func (e *Engine) minorityEnterGaming(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameMinority || e.runtime.Phase != models.PhaseCountdown {
		e.mu.Unlock()
		return
	}
	var payload minorityPayload
	_ = json.Unmarshal(e.runtime.Payload, &payload)
	now := time.Now()
	duration := time.Duration(payload.Question.DurationSec) * time.Second
	e.runtime.Phase = models.PhaseGaming
	e.runtime.StartTime = now
	e.runtime.EndTime = now.Add(duration)
	if err := e.persist(ctx); err != nil {
		e.log.WithError(err).Error("minigame: persist minority gaming")
	}
	settleAt := duration + time.Second
	e.armTimer(settleAt, func() { e.minoritySettle(context.Background()) })
	e.mu.Unlock()
	e.broadcastSync()
}

// minorityPlaceBet accepts PLACE_BET(option, amount) during GAMING, last
// submission wins — prior entries from the same user are removed before
// the new one is inserted (spec §4.5 Minority). No cash moves at submit
// time; only a balance-sufficiency check against the live user row.
func (e *Engine) minorityPlaceBet(ctx context.Context, userID int64, option models.QuizAnswer, amount decimal.Decimal) error {
	if option != models.AnswerA && option != models.AnswerB && option != models.AnswerC && option != models.AnswerD {
		return apperr.New(apperr.KindValidation, "option must be one of A,B,C,D")
	}
	if amount.IsNegative() {
		return apperr.New(apperr.KindValidation, "amount must be non-negative")
	}

	if amount.IsPositive() {
		u, err := e.store.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Cash.LessThan(amount) {
			return apperr.New(apperr.KindInsufficient, "insufficient cash for bet")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameMinority || e.runtime.Phase != models.PhaseGaming {
		return apperr.New(apperr.KindPrecondition, "minority is not accepting bets")
	}
	var payload minorityPayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		return err
	}
	filtered := payload.Bets[:0]
	for _, b := range payload.Bets {
		if b.UserID != userID {
			filtered = append(filtered, b)
		}
	}
	payload.Bets = append(filtered, minorityBet{UserID: userID, Option: option, Amount: amount})
	e.runtime.Payload = comm.MustMarshal(payload)
	return e.persist(ctx)
}

type minorityOptionStat struct {
	Option   models.QuizAnswer `json:"option"`
	Count    int               `json:"count"`
	TotalBet decimal.Decimal   `json:"totalBet"`
	UserIDs  []int64           `json:"userIds"`
}

// minoritySettle resolves REFUND / HOUSE_WINS / STANDARD per spec §4.5
// Minority, crediting winners and debiting losers (cash first, overflow
// to debt) inside one transaction per bettor using the row read inside
// that transaction, never relying on an in-memory balance.
func (e *Engine) minoritySettle(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameMinority || e.runtime.Phase != models.PhaseGaming {
		e.mu.Unlock()
		return
	}
	var payload minorityPayload
	_ = json.Unmarshal(e.runtime.Payload, &payload)
	e.mu.Unlock()

	stats := map[models.QuizAnswer]*minorityOptionStat{}
	order := []models.QuizAnswer{models.AnswerA, models.AnswerB, models.AnswerC, models.AnswerD}
	for _, opt := range order {
		stats[opt] = &minorityOptionStat{Option: opt, TotalBet: decimal.Zero}
	}
	betByUser := map[int64]minorityBet{}
	for _, b := range payload.Bets {
		betByUser[b.UserID] = b
	}
	for _, b := range betByUser {
		s := stats[b.Option]
		s.Count++
		s.TotalBet = s.TotalBet.Add(b.Amount)
		s.UserIDs = append(s.UserIDs, b.UserID)
	}

	var voted []*minorityOptionStat
	for _, opt := range order {
		if stats[opt].Count > 0 {
			voted = append(voted, stats[opt])
		}
	}

	status := "STANDARD"
	var winners, losers []*minorityOptionStat

	switch {
	case len(voted) == 1:
		status = "REFUND"
	case allEqualCounts(voted):
		status = "HOUSE_WINS"
		losers = voted
	default:
		minCount := voted[0].Count
		for _, s := range voted {
			if s.Count < minCount {
				minCount = s.Count
			}
		}
		for _, s := range voted {
			if s.Count == minCount {
				winners = append(winners, s)
			} else {
				losers = append(losers, s)
			}
		}
	}

	var winnerPool, loserPool decimal.Decimal
	for _, s := range winners {
		winnerPool = winnerPool.Add(s.TotalBet)
	}
	for _, s := range losers {
		loserPool = loserPool.Add(s.TotalBet)
	}

	type userResult struct {
		UserID int64           `json:"userId"`
		Option models.QuizAnswer `json:"option"`
		Stake  decimal.Decimal `json:"stake"`
		Delta  decimal.Decimal `json:"delta"`
		Won    bool            `json:"won"`
	}
	var results []userResult

	if status != "REFUND" {
		winnerSet := map[int64]bool{}
		for _, s := range winners {
			for _, uid := range s.UserIDs {
				winnerSet[uid] = true
			}
		}
		for _, b := range betByUser {
			if status == "HOUSE_WINS" || !winnerSet[b.UserID] {
				if b.Amount.IsPositive() {
					if err := e.debitCashOrDebt(ctx, b.UserID, b.Amount); err != nil {
						e.log.WithError(err).WithField("user_id", b.UserID).Error("minigame: debit minority loser")
						continue
					}
				}
				results = append(results, userResult{UserID: b.UserID, Option: b.Option, Stake: b.Amount, Delta: b.Amount.Neg(), Won: false})
				continue
			}
			var profit decimal.Decimal
			if winnerPool.IsPositive() && b.Amount.IsPositive() {
				profit = b.Amount.Div(winnerPool).Mul(loserPool).Round(0)
			}
			if profit.IsPositive() {
				if err := e.creditCash(ctx, b.UserID, profit); err != nil {
					e.log.WithError(err).WithField("user_id", b.UserID).Error("minigame: credit minority winner")
					continue
				}
			}
			results = append(results, userResult{UserID: b.UserID, Option: b.Option, Stake: b.Amount, Delta: profit, Won: true})
		}
	}

	e.mu.Lock()
	e.runtime.Phase = models.PhaseResult
	e.cancelTimer()
	_ = e.persist(ctx)
	e.mu.Unlock()

	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameSync, map[string]interface{}{
		"gameType": models.MiniGameMinority,
		"phase":    models.PhaseResult,
		"settlementResult": map[string]interface{}{
			"status":  status,
			"stats":   stats,
			"results": results,
		},
	}))
	e.broadcastLeaderboard(ctx)
}

func allEqualCounts(stats []*minorityOptionStat) bool {
	if len(stats) < 2 {
		return false
	}
	first := stats[0].Count
	for _, s := range stats[1:] {
		if s.Count != first {
			return false
		}
	}
	return true
}
