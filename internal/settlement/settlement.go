// Package settlement implements the day-boundary pipeline (spec §4.4),
// invoked by internal/tick on every currentDay transition. Step 3 is
// grounded on the teacher's cmd/ctlsvc processWaitingGames: a
// FOR UPDATE SKIP LOCKED batch claim so one bad order never blocks the
// rest (spec §4.4 "If any sub-step fails for a given user/order it is
// logged and skipped; the pipeline never aborts the boundary globally").
package settlement

import (
	"context"

	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const settlementBatchSize = 50

// RunDayBoundary executes steps 1-6 for the transition from prevDay to
// currentDay. Each step is its own transaction; a step's internal
// per-order/per-user failures are logged and skipped rather than
// aborting the whole boundary.
func RunDayBoundary(ctx context.Context, st *store.Store, cache *script.Cache, hub *bus.Hub, prevDay, currentDay int, log *logrus.Entry) {
	gs, err := st.GetGameStatus(ctx)
	if err != nil {
		log.WithError(err).Error("settlement: load game status")
		return
	}

	accrueInterest(ctx, st, gs.DailyInterestRate, log)
	resetDailyBorrow(ctx, st, log)

	exitPrice := gs.InitialPrice
	if d := cache.Day(currentDay); d != nil {
		exitPrice = d.Price
	}

	settleContracts(ctx, st, hub, prevDay, exitPrice, log)
	broadcastPrice(hub, cache, currentDay, exitPrice)
	broadcastLeaderboard(ctx, st, hub, exitPrice, log)
	broadcastAssets(ctx, st, hub, log)
}

func accrueInterest(ctx context.Context, st *store.Store, rate decimal.Decimal, log *logrus.Entry) {
	err := st.WithTx(ctx, func(tx pgx.Tx) error {
		return st.AccrueInterest(ctx, tx, rate)
	})
	if err != nil {
		log.WithError(err).Error("settlement step 1: interest accrual")
	}
}

func resetDailyBorrow(ctx context.Context, st *store.Store, log *logrus.Entry) {
	err := st.WithTx(ctx, func(tx pgx.Tx) error {
		return st.ResetDailyBorrowed(ctx, tx)
	})
	if err != nil {
		log.WithError(err).Error("settlement step 2: daily borrow reset")
	}
}

// settleContracts claims unsettled orders for prevDay in batches, each
// batch its own transaction, so a slow or failing batch never blocks a
// later one (spec §4.4 step 3).
func settleContracts(ctx context.Context, st *store.Store, hub *bus.Hub, prevDay int, exitPrice decimal.Decimal, log *logrus.Entry) {
	for {
		var claimed []*models.ContractOrder
		err := st.WithTx(ctx, func(tx pgx.Tx) error {
			var err error
			claimed, err = st.ClaimUnsettledContracts(ctx, tx, prevDay, settlementBatchSize)
			if err != nil {
				return err
			}
			for _, order := range claimed {
				if err := settleOne(ctx, st, tx, hub, order, exitPrice); err != nil {
					log.WithError(err).WithField("order_id", order.ID).Error("settlement step 3: order settlement")
				}
			}
			return nil
		})
		if err != nil {
			log.WithError(err).Error("settlement step 3: batch claim")
			return
		}
		if len(claimed) < settlementBatchSize {
			return
		}
	}
}

func settleOne(ctx context.Context, st *store.Store, tx pgx.Tx, hub *bus.Hub, order *models.ContractOrder, exitPrice decimal.Decimal) error {
	u, err := st.GetUserForUpdate(ctx, tx, order.UserID)
	if err != nil {
		return err
	}

	var pnlPerUnit decimal.Decimal
	if order.Type == models.ContractLong {
		pnlPerUnit = exitPrice.Sub(order.EntryPrice)
	} else {
		pnlPerUnit = order.EntryPrice.Sub(exitPrice)
	}
	payout := order.Payout(exitPrice)

	if payout.IsNegative() {
		u.Debt = u.Debt.Add(payout.Abs())
	} else {
		u.Cash = u.Cash.Add(payout)
	}

	if err := st.UpdateUserBalances(ctx, tx, u); err != nil {
		return err
	}
	if err := st.MarkContractSettled(ctx, tx, order.ID); err != nil {
		return err
	}

	pnl := pnlPerUnit.Mul(decimal.NewFromInt(order.Quantity)).Mul(decimal.NewFromInt(int64(order.Leverage)))
	hub.SendToUser(order.UserID, comm.NewMessage(comm.EventContractSettled, comm.ContractSettledPayload{
		Type:       string(order.Type),
		Quantity:   order.Quantity,
		EntryPrice: order.EntryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		NewCash:    u.Cash,
		NewDebt:    u.Debt,
	}))
	return nil
}

func broadcastPrice(hub *bus.Hub, cache *script.Cache, currentDay int, exitPrice decimal.Decimal) {
	history := make([]comm.PriceHistoryEntry, 0, currentDay)
	for _, d := range cache.History(currentDay) {
		var title, news *string
		if d.Title != nil {
			title = d.Title
		}
		if d.News != nil {
			news = d.News
		}
		history = append(history, comm.PriceHistoryEntry{
			Day: d.Day, Price: d.Price, Title: title, News: news,
			EffectiveTrend: string(d.EffectiveTrend),
		})
	}
	hub.BroadcastGlobal(comm.NewMessage(comm.EventPriceUpdate, comm.PriceUpdatePayload{
		Day: currentDay, Price: exitPrice, History: history,
	}))
}

func broadcastLeaderboard(ctx context.Context, st *store.Store, hub *bus.Hub, price decimal.Decimal, log *logrus.Entry) {
	rows, err := st.TopLeaderboard(ctx, price, 100)
	if err != nil {
		log.WithError(err).Error("settlement step 5: leaderboard query")
		return
	}
	hub.BroadcastGlobal(comm.NewMessage(comm.EventLeaderboardUpdate, comm.LeaderboardUpdatePayload{Data: rows}))
}

func broadcastAssets(ctx context.Context, st *store.Store, hub *bus.Hub, log *logrus.Entry) {
	users, err := st.ListUsers(ctx)
	if err != nil {
		log.WithError(err).Error("settlement step 6: list users")
		return
	}
	for _, u := range users {
		hub.SendToUser(u.ID, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
			Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
		}))
	}
}
