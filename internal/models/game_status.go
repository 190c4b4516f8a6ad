package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStatus is the singleton (id=1) row holding the whole run's
// parameters and clock anchor. Spec §3.
type GameStatus struct {
	ID                int64           `json:"id"`
	IsStarted         bool            `json:"isStarted"`
	GameStartTime     *time.Time      `json:"gameStartTime"`
	PausedAt          *time.Time      `json:"pausedAt"`
	TimeRatio         int64           `json:"timeRatio"` // real seconds per in-game day
	TotalDays         int             `json:"totalDays"`
	InitialPrice      decimal.Decimal `json:"initialPrice"`
	InitialCash       decimal.Decimal `json:"initialCash"`
	MaxLeverage       int             `json:"maxLeverage"`
	DailyInterestRate decimal.Decimal `json:"dailyInterestRate"`
	MaxLoanAmount     decimal.Decimal `json:"maxLoanAmount"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// DefaultGameStatus is the factory-reset target for the singleton row
// (spec §4.1 "reset").
func DefaultGameStatus() *GameStatus {
	return &GameStatus{
		ID:                1,
		IsStarted:         false,
		TimeRatio:         600,
		TotalDays:         120,
		InitialPrice:      decimal.NewFromInt(10),
		InitialCash:       decimal.NewFromInt(10000),
		MaxLeverage:       10,
		DailyInterestRate: decimal.NewFromFloat(0.0001),
		MaxLoanAmount:     decimal.NewFromInt(10000),
	}
}

// GameState is the derived, read-only view returned to clients (spec
// §4.1, §6 GAME_STATE_UPDATE).
type GameState struct {
	IsStarted        bool            `json:"isGameStarted"`
	CurrentDay       int             `json:"currentDay"`
	SecondInDay      int64           `json:"secondInDay"`
	SecondsToNextDay int64           `json:"secondsToNextDay"`
	TotalDays         int             `json:"totalDays"`
	TimeRatio         int64           `json:"timeRatio"`
	InitialPrice      decimal.Decimal `json:"initialPrice"`
	InitialCash       decimal.Decimal `json:"initialCash"`
	MaxLeverage       int             `json:"maxLeverage"`
	DailyInterestRate decimal.Decimal `json:"dailyInterestRate"`
	MaxLoanAmount     decimal.Decimal `json:"maxLoanAmount"`
}
