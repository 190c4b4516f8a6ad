package store

import (
	"context"

	"github.com/avvvet/marketday/internal/models"
	"github.com/jackc/pgx/v5"
)

const redEnvelopeItemColumns = `id, name, type, prize_value, amount, display_order, is_active`

func scanRedEnvelopeItem(row pgx.Row) (*models.RedEnvelopeItem, error) {
	it := &models.RedEnvelopeItem{}
	err := row.Scan(&it.ID, &it.Name, &it.Type, &it.PrizeValue, &it.Amount, &it.DisplayOrder, &it.IsActive)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Store) ListActiveRedEnvelopeItems(ctx context.Context) ([]*models.RedEnvelopeItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+redEnvelopeItemColumns+` FROM red_envelope_items
		WHERE is_active = true ORDER BY display_order`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.RedEnvelopeItem
	for rows.Next() {
		it, err := scanRedEnvelopeItem(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) UpsertRedEnvelopeItem(ctx context.Context, it *models.RedEnvelopeItem) (*models.RedEnvelopeItem, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO red_envelope_items (id, name, type, prize_value, amount, display_order, is_active)
		VALUES (COALESCE(NULLIF($1, 0), nextval('red_envelope_items_id_seq')), $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type,
			prize_value = EXCLUDED.prize_value, amount = EXCLUDED.amount,
			display_order = EXCLUDED.display_order, is_active = EXCLUDED.is_active
		RETURNING `+redEnvelopeItemColumns,
		it.ID, it.Name, it.Type, it.PrizeValue, it.Amount, it.DisplayOrder, it.IsActive,
	)
	out, err := scanRedEnvelopeItem(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return out, nil
}

func (s *Store) DeleteRedEnvelopeItem(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM red_envelope_items WHERE id = $1`, id)
	return translate(err, "")
}

const quizQuestionColumns = `id, text, option_a, option_b, option_c, option_d, correct_answer,
	duration_seconds, sort_order, reward_first, reward_second, reward_third, reward_others`

func scanQuizQuestion(row pgx.Row) (*models.QuizQuestion, error) {
	q := &models.QuizQuestion{}
	err := row.Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer,
		&q.DurationSec, &q.SortOrder, &q.Rewards.First, &q.Rewards.Second, &q.Rewards.Third, &q.Rewards.Others)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) ListQuizQuestions(ctx context.Context) ([]*models.QuizQuestion, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+quizQuestionColumns+` FROM quiz_questions ORDER BY sort_order`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.QuizQuestion
	for rows.Next() {
		q, err := scanQuizQuestion(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpsertQuizQuestion(ctx context.Context, q *models.QuizQuestion) (*models.QuizQuestion, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO quiz_questions (id, text, option_a, option_b, option_c, option_d, correct_answer,
			duration_seconds, sort_order, reward_first, reward_second, reward_third, reward_others)
		VALUES (COALESCE(NULLIF($1, 0), nextval('quiz_questions_id_seq')), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, option_a = EXCLUDED.option_a,
			option_b = EXCLUDED.option_b, option_c = EXCLUDED.option_c, option_d = EXCLUDED.option_d,
			correct_answer = EXCLUDED.correct_answer, duration_seconds = EXCLUDED.duration_seconds,
			sort_order = EXCLUDED.sort_order, reward_first = EXCLUDED.reward_first,
			reward_second = EXCLUDED.reward_second, reward_third = EXCLUDED.reward_third,
			reward_others = EXCLUDED.reward_others
		RETURNING `+quizQuestionColumns,
		q.ID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.DurationSec, q.SortOrder,
		q.Rewards.First, q.Rewards.Second, q.Rewards.Third, q.Rewards.Others,
	)
	out, err := scanQuizQuestion(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return out, nil
}

func (s *Store) DeleteQuizQuestion(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM quiz_questions WHERE id = $1`, id)
	return translate(err, "")
}

const minorityQuestionColumns = `id, text, option_a, option_b, option_c, option_d, duration_seconds, sort_order`

func scanMinorityQuestion(row pgx.Row) (*models.MinorityQuestion, error) {
	q := &models.MinorityQuestion{}
	err := row.Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.DurationSec, &q.SortOrder)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) ListMinorityQuestions(ctx context.Context) ([]*models.MinorityQuestion, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+minorityQuestionColumns+` FROM minority_questions ORDER BY sort_order`)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var out []*models.MinorityQuestion
	for rows.Next() {
		q, err := scanMinorityQuestion(rows)
		if err != nil {
			return nil, translate(err, "")
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpsertMinorityQuestion(ctx context.Context, q *models.MinorityQuestion) (*models.MinorityQuestion, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO minority_questions (id, text, option_a, option_b, option_c, option_d, duration_seconds, sort_order)
		VALUES (COALESCE(NULLIF($1, 0), nextval('minority_questions_id_seq')), $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, option_a = EXCLUDED.option_a,
			option_b = EXCLUDED.option_b, option_c = EXCLUDED.option_c, option_d = EXCLUDED.option_d,
			duration_seconds = EXCLUDED.duration_seconds, sort_order = EXCLUDED.sort_order
		RETURNING `+minorityQuestionColumns,
		q.ID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.DurationSec, q.SortOrder,
	)
	out, err := scanMinorityQuestion(row)
	if err != nil {
		return nil, translate(err, "")
	}
	return out, nil
}

func (s *Store) DeleteMinorityQuestion(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM minority_questions WHERE id = $1`, id)
	return translate(err, "")
}
