package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codemaster/internal/domain"
)

// QuestionRepository stores catalog records as JSON text in insertion order.
type QuestionRepository struct {
	db *sql.DB
}

func (r *QuestionRepository) All(ctx context.Context) ([]domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM questions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []domain.Question{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM questions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var q domain.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return q, nil
}

func (r *QuestionRepository) Save(ctx context.Context, q domain.Question) error {
	return saveQuestion(ctx, r.db, q)
}

func (r *QuestionRepository) SaveMany(ctx context.Context, qs []domain.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, q := range qs {
		if err := saveQuestion(ctx, tx, q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *QuestionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveQuestion(ctx context.Context, db execer, q domain.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO questions (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		q.ID, string(data))
	if err != nil {
		return fmt.Errorf("save question %s: %w", q.ID, err)
	}
	return nil
}

// SessionRepository stores sessions as JSON text.
type SessionRepository struct {
	db *sql.DB
}

func (r *SessionRepository) All(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess domain.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (r *SessionRepository) Save(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO sessions (id, started_at, pending, data) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET pending = excluded.pending, data = excluded.data`,
		sess.ID, sess.StartedAt.UnixNano(), sess.Pending(), string(data))
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// BadgeRepository stores the badge catalog in display order.
type BadgeRepository struct {
	db *sql.DB
}

func (r *BadgeRepository) List(ctx context.Context) ([]domain.Badge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM badges ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", err)
	}
	defer rows.Close()

	out := []domain.Badge{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		var b domain.Badge
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("unmarshal badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BadgeRepository) SaveAll(ctx context.Context, badges []domain.Badge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM badges`); err != nil {
		return fmt.Errorf("clear badges: %w", err)
	}
	for i, b := range badges {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal badge: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO badges (id, position, data) VALUES (?, ?, ?)`, b.ID, i, string(data)); err != nil {
			return fmt.Errorf("save badge %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}
