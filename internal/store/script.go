package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
)

const scriptDayColumns = `day, price, title, news, effective_trend, publish_offset, is_broadcasted`

func scanScriptDay(row pgx.Row) (*models.ScriptDay, error) {
	d := &models.ScriptDay{}
	err := row.Scan(&d.Day, &d.Price, &d.Title, &d.News, &d.EffectiveTrend, &d.PublishOffset, &d.IsBroadcasted)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetScriptDay returns the authoritative row for one day, unfiltered —
// callers that serve clients must apply ScriptDay.Visible() themselves
// (spec §8 invariant I6).
func (s *Store) GetScriptDay(ctx context.Context, day int) (*models.ScriptDay, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+scriptDayColumns+` FROM script_days WHERE day = $1`, day)
	d, err := scanScriptDay(row)
	if err != nil {
		return nil, translate(err, "script day not found")
	}
	return d, nil
}

// ListScriptDays returns the full timeline ordered by day, used to warm
// internal/script's in-memory cache on boot.
func (s *Store) ListScriptDays(ctx context.Context) ([]*models.ScriptDay, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+scriptDayColumns+` FROM script_days ORDER BY day`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var days []*models.ScriptDay
	for rows.Next() {
		d, err := scanScriptDay(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// UpsertScriptDay writes one generated or admin-edited day, used both by
// the generator's initial run and by live event edits (spec §4.2, §4.7).
func (s *Store) UpsertScriptDay(ctx context.Context, tx pgx.Tx, d *models.ScriptDay) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO script_days (day, price, title, news, effective_trend, publish_offset, is_broadcasted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day) DO UPDATE SET
			price = EXCLUDED.price, title = EXCLUDED.title, news = EXCLUDED.news,
			effective_trend = EXCLUDED.effective_trend, publish_offset = EXCLUDED.publish_offset,
			is_broadcasted = EXCLUDED.is_broadcasted`,
		d.Day, d.Price, d.Title, d.News, d.EffectiveTrend, d.PublishOffset, d.IsBroadcasted,
	)
	return translate(err, "")
}

// MarkBroadcasted flips IsBroadcasted on the publish-offset tick so the
// headline becomes visible going forward (spec §4.2 day-transition step).
func (s *Store) MarkBroadcasted(ctx context.Context, tx pgx.Tx, day int) error {
	_, err := tx.Exec(ctx, `UPDATE script_days SET is_broadcasted = true WHERE day = $1`, day)
	return translate(err, "")
}

// TruncateScriptDays clears the whole timeline ahead of a fresh
// generator run (spec §4.1 reset, §4.7).
func (s *Store) TruncateScriptDays(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DELETE FROM script_days`)
	return translate(err, "")
}

// ClearBroadcastFlags resets is_broadcasted on every day, used by start
// and restart (spec §4.1).
func (s *Store) ClearBroadcastFlags(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `UPDATE script_days SET is_broadcasted = false`)
	return translate(err, "")
}

// DeleteAllEventsTx clears the admin-authored event list on a factory
// reset (spec §4.1 "reset").
func (s *Store) DeleteAllEventsTx(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DELETE FROM events`)
	return translate(err, "")
}

const eventColumns = `id, day, title, news, trend`

func scanEvent(row pgx.Row) (*models.Event, error) {
	e := &models.Event{}
	if err := row.Scan(&e.ID, &e.Day, &e.Title, &e.News, &e.Trend); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]*models.Event, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY day`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) UpsertEvent(ctx context.Context, e *models.Event) (*models.Event, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO events (id, day, title, news, trend)
		VALUES (COALESCE(NULLIF($1, 0), nextval('events_id_seq')), $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET day = EXCLUDED.day, title = EXCLUDED.title,
			news = EXCLUDED.news, trend = EXCLUDED.trend
		RETURNING `+eventColumns,
		e.ID, e.Day, e.Title, e.News, e.Trend,
	)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return ev, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return translate(err, "")
}
