package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `id, username, password_hash, display_name, avatar, role, cash, stocks, debt,
	daily_borrowed, first_sign_in, is_employee, avatar_update_count, loan_shark_visit_count,
	created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Avatar, &u.Role, &u.Cash, &u.Stocks, &u.Debt,
		&u.DailyBorrowed, &u.FirstSignIn, &u.IsEmployee, &u.AvatarUpdateCount, &u.LoanSharkVisitCount,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser registers a new player, seeded with the game's current
// InitialCash (spec §4.3). Fails on duplicate username (unique_users_username).
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, displayName string, initialCash decimal.Decimal) (*models.User, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, display_name, role, cash, stocks, debt,
			daily_borrowed, first_sign_in, is_employee, avatar_update_count, loan_shark_visit_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, 'USER', $4, 0, 0, 0, true, false, 0, 0, now(), now())
		RETURNING `+userColumns,
		username, passwordHash, displayName, initialCash,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return u, nil
}

// GetUserForUpdate locks one user row for a money-mutating transaction
// (spec §5 "every write to User... happens inside one FOR UPDATE
// transaction"), grounded on the teacher's CTE-locked insert in
// game_player_store.go.
func (s *Store) GetUserForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.User, error) {
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return u, nil
}

func (s *Store) UpdateUserBalances(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET cash = $1, stocks = $2, debt = $3, daily_borrowed = $4, updated_at = now()
		WHERE id = $5`,
		u.Cash, u.Stocks, u.Debt, u.DailyBorrowed, u.ID,
	)
	return translate(err, "")
}

func (s *Store) UpdateUserProfile(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET display_name = $1, avatar = $2, first_sign_in = $3, is_employee = $4,
			avatar_update_count = $5, loan_shark_visit_count = $6, updated_at = now()
		WHERE id = $7`,
		u.DisplayName, u.Avatar, u.FirstSignIn, u.IsEmployee, u.AvatarUpdateCount, u.LoanSharkVisitCount, u.ID,
	)
	return translate(err, "")
}

// ResetDailyBorrowed zeroes daily_borrowed for every user; called once
// per day-rollover by the settlement pipeline (spec §4.4 step 2).
func (s *Store) ResetDailyBorrowed(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `UPDATE users SET daily_borrowed = 0`)
	return translate(err, "")
}

// AccrueInterest applies debt *= (1 + rate) to every indebted user in one
// statement (spec §4.4 step 1, invariant I4).
func (s *Store) AccrueInterest(ctx context.Context, tx pgx.Tx, rate decimal.Decimal) error {
	_, err := tx.Exec(ctx, `UPDATE users SET debt = debt * (1 + $1) WHERE debt > 0`, rate)
	return translate(err, "")
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteAllUsers cascade-deletes contract orders first to satisfy the FK
// order on a factory reset (spec §9 Open Question d).
func (s *Store) DeleteAllUsers(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `DELETE FROM contract_orders`); err != nil {
		return translate(err, "")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
		return translate(err, "")
	}
	return nil
}

// DeleteUsersExcept removes every non-admin user except keepUserID, the
// calling admin (spec §4.1 "reset": "delete all users with role≠ADMIN ∧
// id≠currentAdminId"). Contract orders are deleted by the caller first
// (DeleteAllContracts) so the FK never blocks this.
func (s *Store) DeleteUsersExcept(ctx context.Context, tx pgx.Tx, keepUserID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM users WHERE role != 'ADMIN' AND id != $1`, keepUserID)
	return translate(err, "")
}

// ResetUserDailyQuotas zeroes avatarUpdateCount and loanSharkVisitCount
// on every user, run on start (spec §4.1 "start").
func (s *Store) ResetUserDailyQuotas(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `UPDATE users SET avatar_update_count = 0, loan_shark_visit_count = 0`)
	return translate(err, "")
}

// ResetAllUserBalances returns every user to the starting position (spec
// §4.1 "restart").
func (s *Store) ResetAllUserBalances(ctx context.Context, tx pgx.Tx, initialCash decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET cash = $1, stocks = 0, debt = 0, daily_borrowed = 0, first_sign_in = false`,
		initialCash,
	)
	return translate(err, "")
}
