// Package tick drives the 1 Hz scheduler that derives GameState,
// broadcasts it, publishes news on its offset, and fires the
// day-boundary settlement pipeline on day transitions (spec §4.2).
// Grounded on 0xC3B6-MarketSentinel's internal/scheduler: cron.New
// with cron.WithSeconds() and an @every entry, in place of the
// teacher's hand-rolled time.Ticker (SPEC_FULL.md §4.2).
package tick

import (
	"context"
	"time"

	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/settlement"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// cronLogAdapter routes cron's internal diagnostics through logrus
// (SPEC_FULL.md §4.2).
type cronLogAdapter struct {
	log *logrus.Entry
}

func (a cronLogAdapter) Info(msg string, kv ...interface{}) {
	a.log.WithField("cron_kv", kv).Debug(msg)
}

func (a cronLogAdapter) Error(err error, msg string, kv ...interface{}) {
	a.log.WithField("cron_kv", kv).WithError(err).Error(msg)
}

type Loop struct {
	cron     *cron.Cron
	store    *store.Store
	cache    *script.Cache
	bus      *bus.Hub
	log      *logrus.Entry
	prevDay  int
}

func New(st *store.Store, cache *script.Cache, hub *bus.Hub, log *logrus.Entry) *Loop {
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cronLogAdapter{log: log}))
	return &Loop{cron: c, store: st, cache: cache, bus: hub, log: log, prevDay: -1}
}

// Start registers the @every 1s entry and starts the cron scheduler.
func (l *Loop) Start() error {
	_, err := l.cron.AddFunc("@every 1s", l.runOnce)
	if err != nil {
		return err
	}
	l.cron.Start()
	return nil
}

func (l *Loop) Stop() {
	ctx := l.cron.Stop()
	<-ctx.Done()
}

// NotifyStarted re-arms the day-transition tracker to −1 whenever
// isStarted flips false→true (spec §4.2 step 4), so a restart never
// skips or replays the first day's pipeline.
func (l *Loop) NotifyStarted() {
	l.prevDay = -1
}

func (l *Loop) runOnce() {
	ctx := context.Background()

	gs, err := l.store.GetGameStatus(ctx)
	if err != nil {
		l.log.WithError(err).Error("tick: load game status")
		return
	}

	state := clockengine.Derive(gs, time.Now())
	l.bus.BroadcastGlobal(comm.NewMessage(comm.EventGameStateUpdate, comm.GameStateUpdatePayload{
		CurrentDay:    state.CurrentDay,
		IsGameStarted: state.IsStarted,
		Countdown:     state.SecondsToNextDay,
		TotalDays:     state.TotalDays,
		MaxLeverage:   state.MaxLeverage,
	}))

	if state.IsStarted && state.CurrentDay > 0 {
		l.checkNewsPublish(ctx, state)
	}

	if state.IsStarted && state.CurrentDay > l.prevDay && l.prevDay >= 0 {
		settlement.RunDayBoundary(ctx, l.store, l.cache, l.bus, l.prevDay, state.CurrentDay, l.log)
	}
	l.prevDay = state.CurrentDay
}

func (l *Loop) checkNewsPublish(ctx context.Context, state models.GameState) {
	day := l.cache.Day(state.CurrentDay)
	if day == nil || day.Title == nil || day.PublishOffset == nil || day.IsBroadcasted {
		return
	}
	if state.SecondInDay != *day.PublishOffset {
		return
	}

	err := l.store.WithTx(ctx, func(tx pgx.Tx) error {
		return l.store.MarkBroadcasted(ctx, tx, state.CurrentDay)
	})
	if err != nil {
		l.log.WithError(err).Error("tick: mark broadcasted")
		return
	}

	l.cache.MarkBroadcasted(state.CurrentDay)

	content := ""
	if day.News != nil {
		content = *day.News
	}
	l.bus.BroadcastGlobal(comm.NewMessage(comm.EventNewsUpdate, comm.NewsUpdatePayload{
		Day:     state.CurrentDay,
		Title:   *day.Title,
		Content: content,
	}))
}

