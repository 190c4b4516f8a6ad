package store

import (
	"context"
	"errors"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetMiniGameRuntime reads the single runtime slot (spec §3, key
// CURRENT_GAME), returning the idle snapshot if nothing has ever been
// persisted. Unlike GetGameStatus, nothing is inserted on that first
// read.
func (s *Store) GetMiniGameRuntime(ctx context.Context) (*models.MiniGameRuntime, error) {
	r := &models.MiniGameRuntime{}
	err := s.Pool.QueryRow(ctx, `
		SELECT game_type, phase, start_time, end_time, payload FROM minigame_runtime WHERE id = 1`,
	).Scan(&r.GameType, &r.Phase, &r.StartTime, &r.EndTime, &r.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IdleRuntime(), nil
	}
	if err != nil {
		return nil, translate(err, "")
	}
	return r, nil
}

// SaveMiniGameRuntime persists a phase transition so a restart can
// rehydrate mid-round instead of losing state (spec §4.5 "rehydration").
func (s *Store) SaveMiniGameRuntime(ctx context.Context, r *models.MiniGameRuntime) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO minigame_runtime (id, game_type, phase, start_time, end_time, payload)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET game_type = EXCLUDED.game_type, phase = EXCLUDED.phase,
			start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, payload = EXCLUDED.payload`,
		r.GameType, r.Phase, r.StartTime, r.EndTime, r.Payload,
	)
	return translate(err, "")
}
