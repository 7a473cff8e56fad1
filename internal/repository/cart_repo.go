package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"glow-llm/internal/domain"
)

// CartRepository persiste carritos derivados para el flujo de presentacion.
type CartRepository interface {
	Save(ctx context.Context, cart domain.Cart) error
}

type PgCartRepository struct {
	pool *pgxpool.Pool
}

func NewPgCartRepository(pool *pgxpool.Pool) *PgCartRepository {
	return &PgCartRepository{pool: pool}
}

func (r *PgCartRepository) Save(ctx context.Context, cart domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	retailers, err := json.Marshal(cart.Retailers)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO carts (id, items, total_price, retailers, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query, cart.ID, items, cart.TotalPrice, retailers, cart.CreatedAt)
	return err
}
