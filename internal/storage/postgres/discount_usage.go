package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

type discountUsageRepository struct {
	db *sql.DB
}

// NewDiscountUsageCounter создаёт счётчик применений скидок поверх таблицы discount_usage.
func NewDiscountUsageCounter(store *Store) domain.DiscountUsageCounter {
	return &discountUsageRepository{db: store.DB()}
}

func (r *discountUsageRepository) Usage(code string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var uses int
	err := r.db.QueryRowContext(ctx, `SELECT uses FROM discount_usage WHERE code = $1`, code).Scan(&uses)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "select discount usage")
	}
	return uses, nil
}

// Increment атомарно увеличивает счётчик через upsert.
func (r *discountUsageRepository) Increment(code string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var uses int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO discount_usage (code, uses, updated_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (code) DO UPDATE
		SET uses = discount_usage.uses + 1,
		    updated_at = EXCLUDED.updated_at
		RETURNING uses
	`, code, time.Now().UTC()).Scan(&uses)
	if err != nil {
		return 0, errors.Wrap(err, "increment discount usage")
	}
	return uses, nil
}

var _ domain.DiscountUsageCounter = (*discountUsageRepository)(nil)
