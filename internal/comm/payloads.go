package comm

import "github.com/shopspring/decimal"

type GameStateUpdatePayload struct {
	CurrentDay       int             `json:"currentDay"`
	IsGameStarted    bool            `json:"isGameStarted"`
	Countdown        int64           `json:"countdown"`
	TotalDays        int             `json:"totalDays"`
	MaxLeverage      int             `json:"maxLeverage"`
}

type PriceHistoryEntry struct {
	Day            int             `json:"day"`
	Price          decimal.Decimal `json:"price"`
	Title          *string         `json:"title,omitempty"`
	News           *string         `json:"news,omitempty"`
	EffectiveTrend string          `json:"effectiveTrend"`
}

type PriceUpdatePayload struct {
	Day     int                 `json:"day"`
	Price   decimal.Decimal     `json:"price"`
	History []PriceHistoryEntry `json:"history"`
}

type NewsUpdatePayload struct {
	Day     int    `json:"day"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type LeaderboardRow struct {
	UserID      int64           `json:"userId"`
	DisplayName string          `json:"displayName"`
	Avatar      string          `json:"avatar"`
	TotalAssets decimal.Decimal `json:"totalAssets"`
	Rank        int             `json:"rank"`
}

type LeaderboardUpdatePayload struct {
	Data []LeaderboardRow `json:"data"`
}

type ContractSettledPayload struct {
	Type       string          `json:"type"`
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	PnL        decimal.Decimal `json:"pnl"`
	NewCash    decimal.Decimal `json:"newCash"`
	NewDebt    decimal.Decimal `json:"newDebt"`
}

type AssetsUpdatePayload struct {
	Cash          decimal.Decimal `json:"cash"`
	Stocks        int64           `json:"stocks"`
	Debt          decimal.Decimal `json:"debt"`
	DailyBorrowed decimal.Decimal `json:"dailyBorrowed"`
}

type TradeSuccessPayload struct {
	Action  string          `json:"action"`
	Cash    decimal.Decimal `json:"cash"`
	Stocks  int64           `json:"stocks"`
	Debt    decimal.Decimal `json:"debt"`
	Detail  interface{}     `json:"detail,omitempty"`
}

type TradeErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type FullSyncStatePayload struct {
	GameState        GameStateUpdatePayload   `json:"gameStatus"`
	Price            decimal.Decimal          `json:"price"`
	History          []PriceHistoryEntry      `json:"history"`
	Assets           AssetsUpdatePayload      `json:"assets"`
	ActiveContracts  []ContractView           `json:"activeContracts"`
	Leaderboard      []LeaderboardRow         `json:"leaderboard"`
}

type ContractView struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	Leverage   int             `json:"leverage"`
	Quantity   int64           `json:"quantity"`
	Margin     decimal.Decimal `json:"margin"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
}

type MiniGameCountdownPayload struct {
	Countdown int `json:"countdown"`
}

type MiniGameEventPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
