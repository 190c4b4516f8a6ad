// Package store is the durable record of users, scripted days, contract
// orders, catalogues, and the mini-game runtime snapshot (spec §3). It
// wraps a pgxpool.Pool exactly as the teacher's internal/gamesvc/db does,
// generalized to every entity this engine owns, with SELECT ... FOR
// UPDATE locking on every money-mutating path (spec §5, §9).
package store

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
}

// Connect opens the pool against DATABASE_URL (spec §6 Configuration),
// matching the teacher's Connect()/ClosePool() pair.
func Connect(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(connectCtx); err != nil {
		return nil, err
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// WithTx runs fn inside a ReadCommitted transaction, committing on a nil
// return and rolling back otherwise. Every money-mutating call in
// trading/settlement/clockengine goes through this, matching the
// begin/defer-rollback/commit shape of the teacher's own store methods
// and cmd/ctlsvc's processWaitingGames.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
