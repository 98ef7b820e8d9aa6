package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GiftOptionStore struct {
	pool *pgxpool.Pool
}

var ErrGiftOptionNotFound = errors.New("gift option not found")

func NewGiftOptionStore(pool *pgxpool.Pool) *GiftOptionStore {
	return &GiftOptionStore{pool: pool}
}

func (s *GiftOptionStore) GetByID(ctx context.Context, optionID string) (*GiftOption, error) {
	var option GiftOption
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, price, active FROM gift_options WHERE id = $1`,
		optionID,
	).Scan(&option.ID, &option.Name, &option.Price, &option.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGiftOptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (s *GiftOptionStore) Upsert(ctx context.Context, option *GiftOption) error {
	query := `
		INSERT INTO gift_options (id, name, price, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, active = EXCLUDED.active
	`
	_, err := s.pool.Exec(ctx, query, option.ID, option.Name, option.Price, option.Active)
	return err
}
