package minigame

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/shopspring/decimal"
)

type redPacket struct {
	Index       int                        `json:"index"`
	Name        string                     `json:"name"`
	Type        models.RedEnvelopeItemType `json:"type"`
	PrizeValue  decimal.Decimal            `json:"prizeValue"`
	IsTaken     bool                       `json:"isTaken"`
	OwnerID     int64                      `json:"ownerId,omitempty"`
	IsScratched bool                       `json:"isScratched"`
}

type redEnvelopePayload struct {
	Packets      []redPacket `json:"packets"`
	Participants []int64     `json:"participants"`
}

func (e *Engine) dispatchRedEnvelope(ctx context.Context, command string, data json.RawMessage) error {
	switch command {
	case "INIT":
		return e.redEnvelopeInit(ctx, data)
	case "START_SHUFFLE":
		return e.redEnvelopeStartShuffle(ctx, data)
	case "START_GRAB":
		return e.redEnvelopeStartGrab(ctx)
	case "REVEAL_RESULT":
		return e.redEnvelopeReveal(ctx)
	case "FORCE_REVEAL":
		return e.redEnvelopeForceReveal(ctx)
	default:
		return apperr.New(apperr.KindValidation, "unknown red envelope command")
	}
}

// redEnvelopeInit expands the active catalogue into one packet per unit,
// pads any deficit against the participant count with the configured
// consolation prize, trims any surplus, then Fisher-Yates shuffles and
// re-indexes (spec §4.5 "INIT").
func (e *Engine) redEnvelopeInit(ctx context.Context, data json.RawMessage) error {
	var req struct {
		Participants []int64 `json:"participants"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid init payload")
	}

	items, err := e.store.ListActiveRedEnvelopeItems(ctx)
	if err != nil {
		return err
	}

	var packets []redPacket
	for _, it := range items {
		for i := 0; i < it.Amount; i++ {
			packets = append(packets, redPacket{Name: it.Name, Type: it.Type, PrizeValue: it.PrizeValue})
		}
	}

	target := len(req.Participants)
	if len(packets) < target {
		deficit := target - len(packets)
		for i := 0; i < deficit; i++ {
			packets = append(packets, redPacket{
				Name:       e.balance.MiniGame.ConsolationPrizeName,
				Type:       models.RedEnvelopeCash,
				PrizeValue: mustDecimal(e.balance.MiniGame.ConsolationPrizeValue),
			})
		}
	} else if len(packets) > target {
		packets = packets[:target]
	}

	rand.Shuffle(len(packets), func(i, j int) { packets[i], packets[j] = packets[j], packets[i] })
	for i := range packets {
		packets[i].Index = i
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimer()
	e.runtime = &models.MiniGameRuntime{
		GameType: models.MiniGameRedEnvelope,
		Phase:    models.PhaseIdle,
		Payload:  comm.MustMarshal(redEnvelopePayload{Packets: packets, Participants: req.Participants}),
	}
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.broadcastSync()
	return nil
}

func (e *Engine) redEnvelopeStartShuffle(ctx context.Context, data json.RawMessage) error {
	var req struct {
		Participants []int64 `json:"participants"`
	}
	_ = json.Unmarshal(data, &req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameRedEnvelope {
		return apperr.New(apperr.KindPrecondition, "no red envelope round initialised")
	}
	var payload redEnvelopePayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		return err
	}
	if len(req.Participants) > 0 {
		payload.Participants = req.Participants
	}
	e.runtime.Phase = models.PhaseShuffle
	e.runtime.Payload = comm.MustMarshal(payload)
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.broadcastSync()
	return nil
}

func (e *Engine) redEnvelopeStartGrab(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameRedEnvelope || e.runtime.Phase != models.PhaseShuffle {
		return apperr.New(apperr.KindPrecondition, "red envelope must be in SHUFFLE to start grab")
	}
	now := time.Now()
	prep := e.balance.RedEnvelopePrepTime()
	e.runtime.Phase = models.PhaseCountdown
	e.runtime.StartTime = now
	e.runtime.EndTime = now.Add(prep)
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.armTimer(prep, func() { e.redEnvelopeEnterGaming(context.Background()) })
	e.broadcastSync()
	return nil
}

func (e *Engine) redEnvelopeEnterGaming(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameRedEnvelope || e.runtime.Phase != models.PhaseCountdown {
		return
	}
	e.runtime.Phase = models.PhaseGaming
	if err := e.persist(ctx); err != nil {
		e.log.WithError(err).Error("minigame: persist red envelope gaming phase")
	}
	e.broadcastSync()
}

// redEnvelopeGrab claims one packet under the mini-game mutex, rejecting
// a second grab by the same user or an already-taken target (spec §4.5
// "GRAB_PACKET"). No cash moves here.
func (e *Engine) redEnvelopeGrab(ctx context.Context, userID int64, packetIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameRedEnvelope || e.runtime.Phase != models.PhaseGaming {
		return apperr.New(apperr.KindPrecondition, "not accepting grabs right now")
	}
	var payload redEnvelopePayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		return err
	}
	for _, p := range payload.Packets {
		if p.OwnerID == userID {
			return apperr.New(apperr.KindConflict, "already grabbed a packet")
		}
	}
	if packetIndex < 0 || packetIndex >= len(payload.Packets) {
		return apperr.New(apperr.KindValidation, "invalid packet index")
	}
	if payload.Packets[packetIndex].IsTaken {
		return apperr.New(apperr.KindConflict, "packet already taken")
	}
	payload.Packets[packetIndex].IsTaken = true
	payload.Packets[packetIndex].OwnerID = userID

	e.runtime.Payload = comm.MustMarshal(payload)
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameEvent, comm.MiniGameEventPayload{
		Type: "PACKET_TAKEN",
		Data: map[string]interface{}{"packetIndex": packetIndex, "userId": userID},
	}))
	e.broadcastSync()
	return nil
}

// redEnvelopeReveal credits every taken cash packet's prize and enters
// REVEAL (spec §4.5 "REVEAL_RESULT"). Each prize is credited by
// creditCash in its own transaction; a failed credit is logged and
// skipped, and the round still enters REVEAL.
func (e *Engine) redEnvelopeReveal(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runtime.GameType != models.MiniGameRedEnvelope || e.runtime.Phase != models.PhaseGaming {
		return apperr.New(apperr.KindPrecondition, "red envelope must be in GAMING to reveal")
	}
	var payload redEnvelopePayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		return err
	}

	for _, p := range payload.Packets {
		if !p.IsTaken || p.Type != models.RedEnvelopeCash || !p.PrizeValue.IsPositive() {
			continue
		}
		if err := e.creditCash(ctx, p.OwnerID, p.PrizeValue); err != nil {
			e.log.WithError(err).WithField("owner_id", p.OwnerID).Error("minigame: credit red envelope prize")
		}
	}

	e.runtime.Phase = models.PhaseReveal
	e.runtime.Payload = comm.MustMarshal(payload)
	if err := e.persist(ctx); err != nil {
		return err
	}
	e.broadcastSync()
	return nil
}

// redEnvelopeForceReveal lets an admin skip waiting on stragglers: it
// marks every taken packet scratched and advances straight to RESULT,
// the same end state the normal all-scratched path reaches.
func (e *Engine) redEnvelopeForceReveal(ctx context.Context) error {
	e.mu.Lock()
	if e.runtime.GameType == models.MiniGameRedEnvelope {
		var payload redEnvelopePayload
		if err := json.Unmarshal(e.runtime.Payload, &payload); err == nil {
			for i := range payload.Packets {
				if payload.Packets[i].IsTaken {
					payload.Packets[i].IsScratched = true
				}
			}
			e.runtime.Payload = comm.MustMarshal(payload)
		}
		e.runtime.Phase = models.PhaseResult
		e.cancelTimer()
		_ = e.persist(ctx)
	}
	e.mu.Unlock()

	e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameEvent, comm.MiniGameEventPayload{Type: "ALL_SCRATCHED"}))
	e.broadcastLeaderboard(ctx)
	return nil
}

// redEnvelopeScratchComplete marks the caller's own taken packet as
// scratched; once every taken packet is scratched it broadcasts
// ALL_SCRATCHED and advances to RESULT (spec §4.5 "SCRATCH_COMPLETE from
// each winner marks their packet isScratched. When all taken packets are
// scratched, globally emit ALL_SCRATCHED").
func (e *Engine) redEnvelopeScratchComplete(ctx context.Context, userID int64) error {
	e.mu.Lock()
	if e.runtime.GameType != models.MiniGameRedEnvelope || e.runtime.Phase != models.PhaseReveal {
		e.mu.Unlock()
		return apperr.New(apperr.KindPrecondition, "red envelope is not in REVEAL")
	}
	var payload redEnvelopePayload
	if err := json.Unmarshal(e.runtime.Payload, &payload); err != nil {
		e.mu.Unlock()
		return err
	}

	found := false
	for i, p := range payload.Packets {
		if p.IsTaken && p.OwnerID == userID {
			payload.Packets[i].IsScratched = true
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return apperr.New(apperr.KindPrecondition, "no taken packet owned by this user")
	}

	allScratched := true
	for _, p := range payload.Packets {
		if p.IsTaken && !p.IsScratched {
			allScratched = false
			break
		}
	}

	e.runtime.Payload = comm.MustMarshal(payload)
	if allScratched {
		e.runtime.Phase = models.PhaseResult
		e.cancelTimer()
	}
	if err := e.persist(ctx); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if allScratched {
		e.hub.BroadcastGlobal(comm.NewMessage(comm.EventMiniGameEvent, comm.MiniGameEventPayload{Type: "ALL_SCRATCHED"}))
		e.broadcastLeaderboard(ctx)
		return nil
	}
	e.broadcastSync()
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
