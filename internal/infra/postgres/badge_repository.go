package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"codemaster/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BadgeRepository stores the badge catalog, one row per badge in display order.
type BadgeRepository struct {
	pool *pgxpool.Pool
}

func NewBadgeRepository(pool *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

func (r *BadgeRepository) List(ctx context.Context) ([]domain.Badge, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM badges ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", err)
	}
	defer rows.Close()

	out := []domain.Badge{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		var b domain.Badge
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("unmarshal badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveAll replaces the stored catalog in one transaction.
func (r *BadgeRepository) SaveAll(ctx context.Context, badges []domain.Badge) error {
	return r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM badges`); err != nil {
			return fmt.Errorf("clear badges: %w", err)
		}
		for i, b := range badges {
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("marshal badge: %w", err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO badges (id, position, data) VALUES ($1, $2, $3)`, b.ID, i, data); err != nil {
				return fmt.Errorf("save badge %s: %w", b.ID, err)
			}
		}
		return nil
	})
}
