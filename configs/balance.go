package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// GameBalance holds the tunable constants that shape a game run: script
// generator coefficients, mini-game phase timings, and the red-envelope
// consolation prize. These aren't secrets, so they live in a YAML file
// under version control instead of the .env, with environment overrides
// layered on top the same way a deployment might need to nudge one knob
// without shipping a new file.
type GameBalance struct {
	Script struct {
		TargetDailyChange float64 `yaml:"target_daily_change"`
		BullDrift         float64 `yaml:"bull_drift"`
		Decay             float64 `yaml:"decay"`
	} `yaml:"script"`

	MiniGame struct {
		RedEnvelopePrepSeconds   int    `yaml:"red_envelope_prep_seconds"`
		RedEnvelopeCountSeconds  int    `yaml:"red_envelope_count_seconds"`
		QuizPrepareSeconds       int    `yaml:"quiz_prepare_seconds"`
		QuizCountdownSeconds     int    `yaml:"quiz_countdown_seconds"`
		MinorityPrepareSeconds   int    `yaml:"minority_prepare_seconds"`
		MinorityCountdownSeconds int    `yaml:"minority_countdown_seconds"`
		ConsolationPrizeName     string `yaml:"consolation_prize_name"`
		ConsolationPrizeValue    string `yaml:"consolation_prize_value"`
	} `yaml:"mini_game"`
}

func DefaultGameBalance() *GameBalance {
	b := &GameBalance{}
	b.Script.TargetDailyChange = 0.05
	b.Script.BullDrift = 0.1
	b.Script.Decay = 0.9
	b.MiniGame.RedEnvelopePrepSeconds = 3
	b.MiniGame.RedEnvelopeCountSeconds = 3
	b.MiniGame.QuizPrepareSeconds = 5
	b.MiniGame.QuizCountdownSeconds = 3
	b.MiniGame.MinorityPrepareSeconds = 5
	b.MiniGame.MinorityCountdownSeconds = 3
	b.MiniGame.ConsolationPrizeName = "Consolation Prize"
	b.MiniGame.ConsolationPrizeValue = "1"
	return b
}

// LoadGameBalance reads path (if present) on top of the defaults, then
// applies BALANCE_* environment overrides.
func LoadGameBalance(path string) (*GameBalance, error) {
	cfg := DefaultGameBalance()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read game balance config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse game balance config: %w", err)
		}
	}

	if v := os.Getenv("BALANCE_TARGET_DAILY_CHANGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Script.TargetDailyChange = f
		}
	}
	if v := os.Getenv("BALANCE_BULL_DRIFT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Script.BullDrift = f
		}
	}
	if v := os.Getenv("BALANCE_DECAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Script.Decay = f
		}
	}

	return cfg, nil
}

func (b *GameBalance) RedEnvelopePrepTime() time.Duration {
	return time.Duration(b.MiniGame.RedEnvelopePrepSeconds+b.MiniGame.RedEnvelopeCountSeconds) * time.Second
}
