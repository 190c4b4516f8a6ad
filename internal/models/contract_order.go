package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractOrder is a one-day leveraged bet on tomorrow's price (spec §3,
// glossary "Contract"). Once IsSettled or IsCancelled flips true it is
// terminal (invariant I5).
type ContractOrder struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Day         int             `json:"day"`
	Type        ContractType    `json:"type"`
	Leverage    int             `json:"leverage"`
	Quantity    int64           `json:"quantity"`
	Margin      decimal.Decimal `json:"margin"`
	EntryPrice  decimal.Decimal `json:"entryPrice"`
	IsSettled   bool            `json:"isSettled"`
	IsCancelled bool            `json:"isCancelled"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Payout computes the settlement payout at exit price P' (spec §4.4 step
// 3 / §8 I3): margin refunded plus per-unit P&L scaled by quantity and
// leverage. A negative payout represents debt owed beyond the margin.
func (c *ContractOrder) Payout(exitPrice decimal.Decimal) decimal.Decimal {
	var pnlPerUnit decimal.Decimal
	if c.Type == ContractLong {
		pnlPerUnit = exitPrice.Sub(c.EntryPrice)
	} else {
		pnlPerUnit = c.EntryPrice.Sub(exitPrice)
	}
	pnl := pnlPerUnit.Mul(decimal.NewFromInt(c.Quantity)).Mul(decimal.NewFromInt(int64(c.Leverage)))
	return c.Margin.Add(pnl)
}
