package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
)

const contractColumns = `id, user_id, day, type, leverage, quantity, margin, entry_price, is_settled,
	is_cancelled, created_at`

func scanContract(row pgx.Row) (*models.ContractOrder, error) {
	c := &models.ContractOrder{}
	err := row.Scan(&c.ID, &c.UserID, &c.Day, &c.Type, &c.Leverage, &c.Quantity, &c.Margin, &c.EntryPrice,
		&c.IsSettled, &c.IsCancelled, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateContractOrder debits margin is the caller's job (one WithTx with
// GetUserForUpdate); this just inserts the row (spec §4.3 "open
// contract").
func (s *Store) CreateContractOrder(ctx context.Context, tx pgx.Tx, c *models.ContractOrder) (*models.ContractOrder, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO contract_orders (user_id, day, type, leverage, quantity, margin, entry_price,
			is_settled, is_cancelled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, now())
		RETURNING `+contractColumns,
		c.UserID, c.Day, c.Type, c.Leverage, c.Quantity, c.Margin, c.EntryPrice,
	)
	out, err := scanContract(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return out, nil
}

// GetContractForUpdate locks one contract for cancel or settlement,
// grounded on the teacher's CTE-locked insert pattern in
// game_player_store.go, generalized to a plain row lock.
func (s *Store) GetContractForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.ContractOrder, error) {
	row := tx.QueryRow(ctx, `SELECT `+contractColumns+` FROM contract_orders WHERE id = $1 FOR UPDATE`, id)
	c, err := scanContract(row)
	if err != nil {
		return nil, translate(err, "contract not found")
	}
	return c, nil
}

func (s *Store) MarkContractCancelled(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE contract_orders SET is_cancelled = true WHERE id = $1`, id)
	return translate(err, "")
}

func (s *Store) MarkContractSettled(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE contract_orders SET is_settled = true WHERE id = $1`, id)
	return translate(err, "")
}

// ClaimUnsettledContracts locks and returns up to limit open orders due
// for settlement on day, skipping rows already locked by a concurrent
// settlement pass. Grounded on the FOR UPDATE SKIP LOCKED batch-claim
// pattern (spec §4.4 step 3, invariant I5).
func (s *Store) ClaimUnsettledContracts(ctx context.Context, tx pgx.Tx, day int, limit int) ([]*models.ContractOrder, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contract_orders
		WHERE day = $1 AND is_settled = false AND is_cancelled = false
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $2`,
		day, limit,
	)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.ContractOrder
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteAllContracts clears every contract order on restart/reset (spec
// §4.1).
func (s *Store) DeleteAllContracts(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DELETE FROM contract_orders`)
	return translate(err, "")
}

func (s *Store) ListOpenContractsByUser(ctx context.Context, userID int64) ([]*models.ContractOrder, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+contractColumns+` FROM contract_orders
		WHERE user_id = $1 AND is_settled = false AND is_cancelled = false
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.ContractOrder
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
