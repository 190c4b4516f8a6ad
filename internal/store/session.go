package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
)

// RecordConnect opens a Session row when a socket authenticates, feeding
// the presence-history collaborator (SPEC_FULL.md §3.1). The bus's own
// in-memory registry, not this table, is what routing decisions use.
func (s *Store) RecordConnect(ctx context.Context, id string, userID int64, role models.Role) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, role, connected_at) VALUES ($1, $2, $3, now())`,
		id, userID, role,
	)
	return translate(err, "")
}

func (s *Store) RecordDisconnect(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE sessions SET disconnected_at = now() WHERE id = $1`, id)
	return translate(err, "")
}
