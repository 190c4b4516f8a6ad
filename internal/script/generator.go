package script

import (
	"context"
	"math/rand"

	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Params tunes the decaying-trend random walk (spec §4.7), loaded from
// the game-balance config.
type Params struct {
	TargetDailyChange float64
	BullDrift         float64
	Decay             float64
}

// Generate produces a full totalDays timeline from initialPrice and the
// admin-authored events, deleting any existing timeline and
// bulk-inserting the new one in a single transaction (spec §4.7).
func Generate(ctx context.Context, st *store.Store, initialPrice decimal.Decimal, totalDays int, events []*models.Event, params Params, rng *rand.Rand, timeRatio int64) error {
	byDay := make(map[int]*models.Event, len(events))
	for _, e := range events {
		byDay[e.Day] = e
	}

	return st.WithTx(ctx, func(tx pgx.Tx) error {
		if err := st.TruncateScriptDays(ctx, tx); err != nil {
			return err
		}

		price := initialPrice
		trendRatio := 0.0
		trendName := models.TrendFlat

		for day := 1; day <= totalDays; day++ {
			nextRatio := trendRatio * params.Decay
			nextName := trendName
			var title, news *string
			if ev, ok := byDay[day]; ok {
				title = &ev.Title
				news = ev.News
				if ev.Trend != models.TrendNoEffect {
					nextName = ev.Trend
					nextRatio = models.TrendStrength[ev.Trend]
				}
			}

			noise := (rng.Float64()*0.8 - 0.4) * params.TargetDailyChange
			change := params.TargetDailyChange*trendRatio + noise
			price = price.Mul(decimal.NewFromFloat(1 + change)).Add(decimal.NewFromFloat(params.BullDrift))
			if price.LessThan(decimal.NewFromInt(1)) {
				price = decimal.NewFromInt(1)
			}
			price = price.Round(2)

			offset := int64(0)
			if timeRatio > 0 {
				offset = rng.Int63n(timeRatio)
			}

			d := &models.ScriptDay{
				Day:            day,
				Price:          price,
				Title:          title,
				News:           news,
				EffectiveTrend: trendName,
				PublishOffset:  &offset,
				IsBroadcasted:  false,
			}
			if title == nil {
				d.PublishOffset = nil
			}
			if err := st.UpsertScriptDay(ctx, tx, d); err != nil {
				return err
			}

			trendRatio = nextRatio
			trendName = nextName
		}

		return nil
	})
}
