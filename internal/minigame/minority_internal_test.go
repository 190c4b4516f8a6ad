package minigame

import (
	"testing"

	"github.com/avvvet/marketday/internal/models"
	"github.com/shopspring/decimal"
)

func TestAllEqualCountsRequiresAtLeastTwoOptions(t *testing.T) {
	if allEqualCounts([]*minorityOptionStat{{Count: 3}}) {
		t.Fatalf("expected false for a single option")
	}
	if allEqualCounts(nil) {
		t.Fatalf("expected false for no options")
	}
}

func TestAllEqualCountsDetectsTie(t *testing.T) {
	stats := []*minorityOptionStat{
		{Option: models.AnswerA, Count: 4},
		{Option: models.AnswerB, Count: 4},
		{Option: models.AnswerC, Count: 4},
	}
	if !allEqualCounts(stats) {
		t.Fatalf("expected a three-way tie to be detected")
	}
}

func TestAllEqualCountsDetectsMinority(t *testing.T) {
	stats := []*minorityOptionStat{
		{Option: models.AnswerA, Count: 4},
		{Option: models.AnswerB, Count: 1},
	}
	if allEqualCounts(stats) {
		t.Fatalf("expected an uneven split to not be flagged as a tie")
	}
}

func TestMustDecimalParsesValidString(t *testing.T) {
	got := mustDecimal("12.50")
	want := decimal.NewFromFloat(12.50)
	if !got.Equal(want) {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestMustDecimalFallsBackToZeroOnInvalidInput(t *testing.T) {
	got := mustDecimal("not-a-number")
	if !got.Equal(decimal.Zero) {
		t.Fatalf("expected zero fallback, got %s", got)
	}
}
