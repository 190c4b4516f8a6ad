package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User mirrors the teacher's users table shape (user_id/name/avatar/...)
// generalized with the market-sim's money/credit fields (spec §3).
type User struct {
	ID                 int64           `json:"id"`
	Username           string          `json:"username"`
	PasswordHash       string          `json:"-"`
	DisplayName        string          `json:"displayName"`
	Avatar             string          `json:"avatar,omitempty"`
	Role               Role            `json:"role"`
	Cash               decimal.Decimal `json:"cash"`
	Stocks             int64           `json:"stocks"`
	Debt               decimal.Decimal `json:"debt"`
	DailyBorrowed      decimal.Decimal `json:"dailyBorrowed"`
	FirstSignIn        bool            `json:"firstSignIn"`
	IsEmployee         bool            `json:"isEmployee"`
	AvatarUpdateCount  int             `json:"avatarUpdateCount"`
	LoanSharkVisitCount int            `json:"loanSharkVisitCount"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TotalAssets computes the leaderboard valuation for one user at price p
// given the sum of their open contract margins on the current day (spec
// §4.4 step 5).
func (u *User) TotalAssets(price decimal.Decimal, openMargins decimal.Decimal) decimal.Decimal {
	stockValue := price.Mul(decimal.NewFromInt(u.Stocks))
	return u.Cash.Add(stockValue).Add(openMargins).Sub(u.Debt)
}
