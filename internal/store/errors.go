package store

import (
	"errors"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// translate maps a pgx error to a typed apperr, following the
// constraint-name switch the teacher uses in game_player_store.go (there
// against pgx v3's *pgx.PgError; here against v5's *pgconn.PgError, the
// only store-layer change needed to retire the v3 import entirely).
func translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.KindNotFound, notFoundMsg)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Wrap(apperr.KindConflict, "unique constraint violated: "+pgErr.ConstraintName, err)
		case "23503":
			return apperr.Wrap(apperr.KindValidation, "invalid reference: "+pgErr.Message, err)
		}
	}

	return apperr.Wrap(apperr.KindStoreDown, "store operation failed", err)
}
