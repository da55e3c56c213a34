package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codemaster/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionRepository stores catalog records as JSONB with their counters in columns.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const upsertQuestionSQL = `
INSERT INTO questions (id, category, difficulty, times_shown, times_correct, data)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    category = EXCLUDED.category,
    difficulty = EXCLUDED.difficulty,
    times_shown = EXCLUDED.times_shown,
    times_correct = EXCLUDED.times_correct,
    data = EXCLUDED.data`

func (r *QuestionRepository) All(ctx context.Context) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT data, times_shown, times_correct FROM questions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT data, times_shown, times_correct FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (r *QuestionRepository) Save(ctx context.Context, q domain.Question) error {
	args, err := questionArgs(q)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, upsertQuestionSQL, args...); err != nil {
		return fmt.Errorf("save question %s: %w", q.ID, err)
	}
	return nil
}

func (r *QuestionRepository) SaveMany(ctx context.Context, qs []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range qs {
		args, err := questionArgs(q)
		if err != nil {
			return err
		}
		batch.Queue(upsertQuestionSQL, args...)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, q := range qs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save question %s: %w", q.ID, err)
		}
	}
	return nil
}

func (r *QuestionRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	return nil
}

func questionArgs(q domain.Question) ([]interface{}, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}
	return []interface{}{q.ID, q.Category, string(q.Difficulty), q.TimesShown, q.TimesCorrect, data}, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		raw                 []byte
		shown, correctCount int
	)
	if err := row.Scan(&raw, &shown, &correctCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	q.TimesShown = shown
	q.TimesCorrect = correctCount
	return q, nil
}
