package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

var ErrProductNotFound = errors.New("product not found")

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetByID(ctx context.Context, productID string) (*Product, error) {
	var (
		product   Product
		updatedAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, price, stock_quantity, stock_status, updated_at FROM products WHERE id = $1`,
		productID,
	).Scan(&product.ID, &product.Name, &product.Price, &product.StockQuantity, &product.StockStatus, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	product.UpdatedAt = updatedAt.Time
	return &product, nil
}

// DecrementStock reduces a product's stock by quantity, flooring at zero, in
// a single read-modify-write statement so concurrent decrements against the
// same row are serialized by the database. When the decrement itself empties
// the shelf the stock status flips to out-of-stock; a status that was set
// independently is left alone. Returns the resulting stock quantity.
func (s *ProductStore) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	query := `
		UPDATE products
		SET stock_quantity = GREATEST(stock_quantity - $2, 0),
		    stock_status = CASE WHEN GREATEST(stock_quantity - $2, 0) = 0 THEN FALSE ELSE stock_status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING stock_quantity
	`
	var newStock int
	err := s.pool.QueryRow(ctx, query, productID, quantity).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

// Upsert creates or refreshes a catalog product. Stock quantity is only
// written on insert so catalog syncs never clobber live inventory.
func (s *ProductStore) Upsert(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (id, name, price, stock_quantity, stock_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, product.ID, product.Name, product.Price, product.StockQuantity, product.StockStatus)
	return err
}
