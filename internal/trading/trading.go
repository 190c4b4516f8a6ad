// Package trading implements the spot/contract/credit handlers (spec
// §4.3). Each exported method opens one transaction, locks the caller's
// user row, validates, writes, and returns the updated user plus any
// created order — grounded directly on
// aaravmaloo-stonks/internal/game/service.go's PlaceOrder (same
// begin-tx/lock-row/validate/write/commit shape), but against
// ReadCommitted rather than Serializable since a single FOR UPDATE row
// lock already serialises every writer touching that row (SPEC_FULL.md
// §4.3).
package trading

import (
	"context"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/models"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Engine struct {
	store *store.Store
	cache *script.Cache
}

func New(st *store.Store, cache *script.Cache) *Engine {
	return &Engine{store: st, cache: cache}
}

// currentPrice reads the script cache for day, falling back to
// initialPrice on day 0 (spec §4.3).
func (e *Engine) currentPrice(gs *models.GameStatus, day int) decimal.Decimal {
	if day <= 0 {
		return gs.InitialPrice
	}
	if d := e.cache.Day(day); d != nil {
		return d.Price
	}
	return gs.InitialPrice
}

func (e *Engine) withUserAndStatus(ctx context.Context, userID int64, fn func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error) error {
	return e.store.WithTx(ctx, func(tx pgx.Tx) error {
		gs, err := e.store.GetGameStatusForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		u, err := e.store.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		state := clockengine.Derive(gs, nowFn())
		return fn(tx, gs, u, state.CurrentDay)
	})
}

// nowFn is a seam for tests; production always uses wall-clock time.
var nowFn = defaultNow

func (e *Engine) BuyStock(ctx context.Context, userID int64, quantity int64) (*models.User, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be at least 1")
	}
	var out *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		price := e.currentPrice(gs, day)
		cost := price.Mul(decimal.NewFromInt(quantity))
		if u.Cash.LessThan(cost) {
			return apperr.New(apperr.KindInsufficient, "insufficient cash")
		}
		u.Cash = u.Cash.Sub(cost)
		u.Stocks += quantity
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (e *Engine) SellStock(ctx context.Context, userID int64, quantity int64) (*models.User, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be at least 1")
	}
	var out *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		if u.Stocks < quantity {
			return apperr.New(apperr.KindHoldings, "insufficient stock holdings")
		}
		price := e.currentPrice(gs, day)
		proceeds := price.Mul(decimal.NewFromInt(quantity))
		u.Cash = u.Cash.Add(proceeds)
		u.Stocks -= quantity
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (e *Engine) OpenContract(ctx context.Context, userID int64, ctype models.ContractType, leverage int, quantity int64) (*models.ContractOrder, *models.User, error) {
	if quantity < 1 {
		return nil, nil, apperr.New(apperr.KindValidation, "quantity must be at least 1")
	}
	if ctype != models.ContractLong && ctype != models.ContractShort {
		return nil, nil, apperr.New(apperr.KindValidation, "invalid contract type")
	}

	var order *models.ContractOrder
	var outUser *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		if leverage < 1 || leverage > gs.MaxLeverage {
			return apperr.New(apperr.KindValidation, "leverage out of range")
		}
		price := e.currentPrice(gs, day)
		margin := price.Mul(decimal.NewFromInt(quantity)).Div(decimal.NewFromInt(int64(leverage)))
		if u.Cash.LessThan(margin) {
			return apperr.New(apperr.KindInsufficient, "insufficient cash for margin")
		}
		u.Cash = u.Cash.Sub(margin)
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		created, err := e.store.CreateContractOrder(ctx, tx, &models.ContractOrder{
			UserID: userID, Day: day, Type: ctype, Leverage: leverage,
			Quantity: quantity, Margin: margin, EntryPrice: price,
		})
		if err != nil {
			return err
		}
		order = created
		outUser = u
		return nil
	})
	return order, outUser, err
}

// CancelContracts cancels every still-open order this user has for
// today and refunds their summed margin (spec §4.3 "Contract cancel").
func (e *Engine) CancelContracts(ctx context.Context, userID int64) (decimal.Decimal, *models.User, error) {
	var refunded decimal.Decimal
	var outUser *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		orders, err := e.store.ListOpenContractsByUser(ctx, userID)
		if err != nil {
			return err
		}
		var todays []*models.ContractOrder
		for _, o := range orders {
			if o.Day == day {
				todays = append(todays, o)
			}
		}
		if len(todays) == 0 {
			return apperr.New(apperr.KindNotFound, "no open contracts for today")
		}
		sum := decimal.Zero
		for _, o := range todays {
			sum = sum.Add(o.Margin)
			if err := e.store.MarkContractCancelled(ctx, tx, o.ID); err != nil {
				return err
			}
		}
		u.Cash = u.Cash.Add(sum)
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		refunded = sum
		outUser = u
		return nil
	})
	return refunded, outUser, err
}

func (e *Engine) Borrow(ctx context.Context, userID int64, amount decimal.Decimal) (*models.User, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	var out *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		if !gs.IsStarted {
			return apperr.New(apperr.KindGameNotRunning, "game is not running")
		}
		if u.DailyBorrowed.Add(amount).GreaterThan(gs.MaxLoanAmount) {
			return apperr.New(apperr.KindQuotaExceeded, "daily borrow quota exceeded")
		}
		u.Cash = u.Cash.Add(amount)
		u.Debt = u.Debt.Add(amount)
		u.DailyBorrowed = u.DailyBorrowed.Add(amount)
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// VisitLoanShark bumps the visit counter used by the (out-of-scope)
// loan shark collaborator surface; no balance changes here (spec §6
// "VISIT_LOAN_SHARK ... as their names suggest").
func (e *Engine) VisitLoanShark(ctx context.Context, userID int64) (*models.User, error) {
	var out *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		u.LoanSharkVisitCount++
		if err := e.store.UpdateUserProfile(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (e *Engine) Repay(ctx context.Context, userID int64, amount decimal.Decimal) (*models.User, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	var out *models.User
	err := e.withUserAndStatus(ctx, userID, func(tx pgx.Tx, gs *models.GameStatus, u *models.User, day int) error {
		if !gs.IsStarted {
			return apperr.New(apperr.KindGameNotRunning, "game is not running")
		}
		if u.Cash.LessThan(amount) {
			return apperr.New(apperr.KindInsufficient, "insufficient cash to repay")
		}
		actual := decimal.Min(amount, u.Debt)
		u.Cash = u.Cash.Sub(actual)
		u.Debt = u.Debt.Sub(actual)
		if err := e.store.UpdateUserBalances(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}
