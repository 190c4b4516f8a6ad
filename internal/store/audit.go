package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
)

// WriteAudit records one admin action or ignored command (SPEC_FULL.md
// §3.1). It writes through the pool, outside any caller transaction.
// Most callers discard its error; clockengine's lifecycle ops return it
// from inside their transaction, so there a failed audit write rolls
// the op back.
func (s *Store) WriteAudit(ctx context.Context, actorUserID int64, action, targetKind, targetID, detail string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO audit_log (actor_user_id, action, target_kind, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		actorUserID, action, targetKind, targetID, detail,
	)
	return translate(err, "")
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, actor_user_id, action, target_kind, target_id, detail, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.AuditLogEntry
	for rows.Next() {
		e := &models.AuditLogEntry{}
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.TargetKind, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
