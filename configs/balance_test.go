package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGameBalanceFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadGameBalance(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := DefaultGameBalance()
	if cfg.Script.TargetDailyChange != want.Script.TargetDailyChange {
		t.Fatalf("expected default TargetDailyChange %v, got %v", want.Script.TargetDailyChange, cfg.Script.TargetDailyChange)
	}
}

func TestLoadGameBalanceReadsYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	yaml := "script:\n  target_daily_change: 0.08\n  bull_drift: 0.2\n  decay: 0.5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := LoadGameBalance(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Script.TargetDailyChange != 0.08 {
		t.Fatalf("expected 0.08, got %v", cfg.Script.TargetDailyChange)
	}
	if cfg.Script.BullDrift != 0.2 {
		t.Fatalf("expected 0.2, got %v", cfg.Script.BullDrift)
	}
	// Untouched by the fixture, so it should still carry the default.
	if cfg.MiniGame.QuizPrepareSeconds != DefaultGameBalance().MiniGame.QuizPrepareSeconds {
		t.Fatalf("expected default QuizPrepareSeconds, got %v", cfg.MiniGame.QuizPrepareSeconds)
	}
}

func TestLoadGameBalanceEnvOverridesWinOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	yaml := "script:\n  target_daily_change: 0.08\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	t.Setenv("BALANCE_TARGET_DAILY_CHANGE", "0.15")
	cfg, err := LoadGameBalance(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Script.TargetDailyChange != 0.15 {
		t.Fatalf("expected env override 0.15, got %v", cfg.Script.TargetDailyChange)
	}
}

func TestRedEnvelopePrepTimeSumsBothPhases(t *testing.T) {
	b := DefaultGameBalance()
	got := b.RedEnvelopePrepTime()
	wantSeconds := b.MiniGame.RedEnvelopePrepSeconds + b.MiniGame.RedEnvelopeCountSeconds
	if int(got.Seconds()) != wantSeconds {
		t.Fatalf("expected %d seconds, got %v", wantSeconds, got)
	}
}
