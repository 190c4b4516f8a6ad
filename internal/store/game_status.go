package store

import (
	"context"
	"errors"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
)

const gameStatusColumns = `id, is_started, game_start_time, paused_at, time_ratio, total_days,
	initial_price, initial_cash, max_leverage, daily_interest_rate, max_loan_amount, updated_at`

func scanGameStatus(row pgx.Row) (*models.GameStatus, error) {
	gs := &models.GameStatus{}
	err := row.Scan(
		&gs.ID, &gs.IsStarted, &gs.GameStartTime, &gs.PausedAt, &gs.TimeRatio, &gs.TotalDays,
		&gs.InitialPrice, &gs.InitialCash, &gs.MaxLeverage, &gs.DailyInterestRate, &gs.MaxLoanAmount, &gs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return gs, nil
}

// GetGameStatus reads the singleton row, upserting the defaults on first
// read (spec §3: "Upserted at first read").
func (s *Store) GetGameStatus(ctx context.Context) (*models.GameStatus, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+gameStatusColumns+` FROM game_status WHERE id = 1`)
	gs, err := scanGameStatus(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.insertDefaultGameStatus(ctx)
	}
	if err != nil {
		return nil, translate(err, "game status not found")
	}
	return gs, nil
}

func (s *Store) insertDefaultGameStatus(ctx context.Context) (*models.GameStatus, error) {
	d := models.DefaultGameStatus()
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO game_status (id, is_started, time_ratio, total_days, initial_price,
			initial_cash, max_leverage, daily_interest_rate, max_loan_amount, updated_at)
		VALUES (1, false, $1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING `+gameStatusColumns,
		d.TimeRatio, d.TotalDays, d.InitialPrice, d.InitialCash, d.MaxLeverage, d.DailyInterestRate, d.MaxLoanAmount,
	)
	gs, err := scanGameStatus(row)
	if err != nil {
		return nil, translate(err, "game status not found")
	}
	return gs, nil
}

// GetGameStatusForUpdate locks the singleton row inside tx — every
// lifecycle op in internal/clockengine starts here (spec §4.1, §5).
func (s *Store) GetGameStatusForUpdate(ctx context.Context, tx pgx.Tx) (*models.GameStatus, error) {
	row := tx.QueryRow(ctx, `SELECT `+gameStatusColumns+` FROM game_status WHERE id = 1 FOR UPDATE`)
	gs, err := scanGameStatus(row)
	if err != nil {
		return nil, translate(err, "game status not found")
	}
	return gs, nil
}

func (s *Store) UpdateGameStatus(ctx context.Context, tx pgx.Tx, gs *models.GameStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE game_status SET
			is_started = $1, game_start_time = $2, paused_at = $3, time_ratio = $4, total_days = $5,
			initial_price = $6, initial_cash = $7, max_leverage = $8, daily_interest_rate = $9,
			max_loan_amount = $10, updated_at = now()
		WHERE id = 1`,
		gs.IsStarted, gs.GameStartTime, gs.PausedAt, gs.TimeRatio, gs.TotalDays,
		gs.InitialPrice, gs.InitialCash, gs.MaxLeverage, gs.DailyInterestRate, gs.MaxLoanAmount,
	)
	return translate(err, "")
}
