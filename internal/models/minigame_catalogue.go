package models

import "github.com/shopspring/decimal"

// RedEnvelopeItem is one catalogue prize definition (spec §3). At
// runtime each active item is expanded into `Amount` individual packets.
type RedEnvelopeItem struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Type         RedEnvelopeItemType `json:"type"`
	PrizeValue   decimal.Decimal     `json:"prizeValue"`
	Amount       int                 `json:"amount"`
	DisplayOrder int                 `json:"displayOrder"`
	IsActive     bool                `json:"isActive"`
}

// QuizRewards holds the fixed/interpolated reward ladder for a question
// (spec §4.5 Quiz).
type QuizRewards struct {
	First  decimal.Decimal `json:"first"`
	Second decimal.Decimal `json:"second"`
	Third  decimal.Decimal `json:"third"`
	Others decimal.Decimal `json:"others"`
}

// QuizQuestion is one admin-authored multiple-choice question with a
// known correct answer and reward ladder.
type QuizQuestion struct {
	ID            int64       `json:"id"`
	Text          string      `json:"text"`
	OptionA       string      `json:"optionA"`
	OptionB       string      `json:"optionB"`
	OptionC       string      `json:"optionC"`
	OptionD       string      `json:"optionD"`
	CorrectAnswer QuizAnswer  `json:"correctAnswer"`
	DurationSec   int         `json:"durationSeconds"`
	SortOrder     int         `json:"sortOrder"`
	Rewards       QuizRewards `json:"rewards"`
}

// MinorityQuestion is the same four-option shape without a correct
// answer — the minority of bettors wins (spec §4.5 Minority).
type MinorityQuestion struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	OptionA     string `json:"optionA"`
	OptionB     string `json:"optionB"`
	OptionC     string `json:"optionC"`
	OptionD     string `json:"optionD"`
	DurationSec int    `json:"durationSeconds"`
	SortOrder   int    `json:"sortOrder"`
}
