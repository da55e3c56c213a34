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

// SessionRepository stores sessions as JSONB rows.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) All(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (r *SessionRepository) Save(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO sessions (id, started_at, ended_at, data) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET ended_at = EXCLUDED.ended_at, data = EXCLUDED.data`,
		sess.ID, sess.StartedAt, sess.EndedAt, data)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}
