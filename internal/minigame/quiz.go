package minigame

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/shopspring/decimal"
)

type quizAnswerRecord struct {
	UserID    int64             `json:"userId"`
	Answer    models.QuizAnswer `json:"answer"`
	Timestamp time.Time         `json:"timestamp"`
}

type quizPayload struct {
	Question         models.QuizQuestion `json:"question"`
	NextCandidateID  int64                `json:"nextCandidateId"`
	Answers          []quizAnswerRecord   `json:"answers"`
}

func (e *Engine) dispatchQuiz(ctx context.Context, command string, data json.RawMessage) error {
	switch command {
	case "INIT":
		return e.quizInit(ctx, data)
	case "FORCE_REVEAL":
		go e.quizSettle(context.Background())
		return nil
	default:
		return apperr.New(apperr.KindValidation, "unknown quiz command")
	}
}

// quizInit loads the question, finds the next candidate by sortOrder,
// and enters PREPARE with a 5s timer (spec §4.5 "INIT with questionId").
func (e *Engine) quizInit(ctx context.Context, data json.RawMessage) error {
	var req struct {
		QuestionID int64 `json:"questionId"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid init payload")
	}

	questions, err := e.store.ListQuizQuestions(ctx)
	if err != nil {
		return err
	}
	var question *models.QuizQuestion
	for _, q := range questions {
		if q.ID == req.QuestionID {
			question = q
			break
		}
	}
	if question == nil {
		return apperr.New(apperr.KindNotFound, "quiz question not found")
	}

	var next *models.QuizQuestion
	for _, q := range questions {
		if q.SortOrder > question.SortOrder {
			if next == nil || q.SortOrder < next.SortOrder || (q.SortOrder == next.SortOrder && q.ID < next.ID) {
				next = q
			}
		}
	}
	var nextID int64
	if next != nil {
		nextID = next.ID
	}

	prepareDur := time.Duration(e.balance.MiniGame.QuizPrepareSeconds) * time.Second

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimer()
	now := time.Now()
	e.runtime = &models.MiniGameRuntime{
		GameType:  models.MiniGameQuiz,
		Phase:     models.PhasePrepare,
		StartTime: now,
		EndTime:   now.Add(prepareDur),
		Payload:   comm.MustMarshal(quizPayload{Question: *question, NextCandidateID: nextID}),
	}
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.armTimer(prepareDur, func() { e.quizEnterCountdown(context.Background()) })
	e.broadcastSync()
	return nil
}

func (e *Engine) quizEnterCountdown(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameQuiz || e.runtime.Phase != models.PhasePrepare {
		e.mu.Unlock()
		return
	}
	countdownDur := time.Duration(e.balance.MiniGame.QuizCountdownSeconds) * time.Second
	now := time.Now()
	e.runtime.Phase = models.PhaseCountdown
	e.runtime.StartTime = now
	e.runtime.EndTime = now.Add(countdownDur)
	if err := e.persist(ctx); err != nil {
		e.log.WithError(err).Error("minigame: persist quiz countdown")
	}
	e.armTimer(countdownDur, func() { e.quizEnterGaming(context.Background()) })
	e.mu.Unlock()

	e.broadcastSync()
	e.runQuizCountdown(e.balance.MiniGame.QuizCountdownSeconds)
}

// runQuizCountdown emits one MINIGAME_COUNTDOWN immediately and then
// every second down to 0 (spec §4.5 "Countdown broadcast").
func (e *Engine) runQuizCountdown(seconds int) {
	for n := seconds; n >= 0; n-- {
		e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameCountdown, comm.MiniGameCountdownPayload{Countdown: n}))
		if n > 0 {
			time.Sleep(time.Second)
		}
	}
}

func (e *Engine) quizEnterGaming(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameQuiz || e.runtime.Phase != models.PhaseCountdown {
		e.mu.Unlock()
		return
	}
	var payload quizPayload
	_ = json.Unmarshal(e.runtime.Payload, &payload)
	now := time.Now()
	duration := time.Duration(payload.Question.DurationSec) * time.Second
	e.runtime.Phase = models.PhaseGaming
	e.runtime.StartTime = now
	e.runtime.EndTime = now.Add(duration)
	if err := e.persist(ctx); err != nil {
		e.log.WithError(err).Error("minigame: persist quiz gaming")
	}
	settleAt := duration + time.Second
	e.armTimer(settleAt, func() { e.quizSettle(context.Background()) })
	e.mu.Unlock()
	e.broadcastSync()
}

// quizSubmitAnswer records one answer per user, first write wins (spec
// §4.5 "reject if already answered").
func (e *Engine) quizSubmitAnswer(ctx context.Context, userID int64, answer models.QuizAnswer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameQuiz || e.runtime.Phase != models.PhaseGaming {
		return apperr.New(apperr.KindPrecondition, "quiz is not accepting answers")
	}
	var payload quizPayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		return err
	}
	for _, a := range payload.Answers {
		if a.UserID == userID {
			return apperr.New(apperr.KindConflict, "already answered")
		}
	}
	payload.Answers = append(payload.Answers, quizAnswerRecord{UserID: userID, Answer: answer, Timestamp: time.Now()})
	e.runtime.Payload = comm.MustMarshal(payload)
	return e.persist(ctx)
}

// quizSettle auto-settles at GAMING.endTime+1s: correct answerers sorted
// by timestamp asc get the reward ladder, 4th+ interpolated between
// others and third by how early they answered (spec §4.5). The factor
// (endTime − ts)/duration is clamped to [0, 1], so an answer at the
// deadline earns others and the reward always lies between others and
// third.
func (e *Engine) quizSettle(ctx context.Context) {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameQuiz || e.runtime.Phase != models.PhaseGaming {
		e.mu.Unlock()
		return
	}
	var payload quizPayload
	_ = json.Unmarshal(e.runtime.Payload, &payload)
	endTime := e.runtime.EndTime
	e.mu.Unlock()

	var winners []quizAnswerRecord
	for _, a := range payload.Answers {
		if a.Answer == payload.Question.CorrectAnswer {
			winners = append(winners, a)
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].Timestamp.Before(winners[j].Timestamp) })

	duration := time.Duration(payload.Question.DurationSec) * time.Second
	rewards := payload.Question.Rewards
	type winnerResult struct {
		UserID int64           `json:"userId"`
		Reward decimal.Decimal `json:"reward"`
		Rank   int             `json:"rank"`
	}
	var results []winnerResult
	for i, w := range winners {
		var reward decimal.Decimal
		switch i {
		case 0:
			reward = rewards.First
		case 1:
			reward = rewards.Second
		case 2:
			reward = rewards.Third
		default:
			frac := float64(endTime.Sub(w.Timestamp)) / float64(duration)
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
			delta := rewards.Third.Sub(rewards.Others).Mul(decimal.NewFromFloat(frac))
			reward = rewards.Others.Add(delta).Round(0)
		}
		if err := e.creditCash(ctx, w.UserID, reward); err != nil {
			e.log.WithError(err).WithField("user_id", w.UserID).Error("minigame: credit quiz reward")
			continue
		}
		results = append(results, winnerResult{UserID: w.UserID, Reward: reward, Rank: i + 1})
	}

	e.mu.Lock()
	e.runtime.Phase = models.PhaseResult
	e.cancelTimer()
	_ = e.persist(ctx)
	e.mu.Unlock()

	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameSync, map[string]interface{}{
		"gameType": models.MiniGameQuiz,
		"phase":    models.PhaseResult,
		"winners":  results,
	}))
	e.broadcastLeaderboard(ctx)
}

func (e *Engine) broadcastLeaderboard(ctx context.Context) {
	gs, err := e.board.GetGameStatus(ctx)
	if err != nil {
		e.log.WithError(err).Error("minigame: load game status for leaderboard")
		return
	}
	price := e.prices.CurrentPrice(ctx)
	_ = gs
	rows, err := e.board.TopLeaderboard(ctx, price, 100)
	if err != nil {
		e.log.WithError(err).Error("minigame: leaderboard query")
		return
	}
	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventLeaderboardUpdate, comm.LeaderboardUpdatePayload{Data: rows}))
}
