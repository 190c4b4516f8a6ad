package store

import (
	"context"

	"github.com/avvvet/marketday/internal/comm"
	"github.com/shopspring/decimal"
)

// TopLeaderboard ranks every USER-role account (admins are left out)
// by total assets at the given price:
// cash + stocks*price + open margins - debt (spec §4.4 step 5). The
// open-margin sum is computed per user in the same statement via a
// correlated subquery against contract_orders, so the ranking always
// reflects currently-open positions.
func (s *Store) TopLeaderboard(ctx context.Context, price decimal.Decimal, limit int) ([]comm.LeaderboardRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT u.id, u.display_name, u.avatar,
			u.cash + (u.stocks * $1::numeric) +
				COALESCE((SELECT SUM(c.margin) FROM contract_orders c
					WHERE c.user_id = u.id AND c.is_settled = false AND c.is_cancelled = false), 0)
				- u.debt AS total_assets
		FROM users u
		WHERE u.role = 'USER'
		ORDER BY total_assets DESC
		LIMIT $2`,
		price, limit,
	)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []comm.LeaderboardRow
	rank := 1
	for rows.Next() {
		var row comm.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.DisplayName, &row.Avatar, &row.TotalAssets); err != nil {
			return nil, translate(err, "")
		}
		row.Rank = rank
		rank++
		out = append(out, row)
	}
	return out, rows.Err()
}
