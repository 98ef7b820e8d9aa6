package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xivishop/xivi/internal/models"
)

type productUpserter interface {
	Upsert(ctx context.Context, product *models.Product) error
}

type giftOptionUpserter interface {
	Upsert(ctx context.Context, option *models.GiftOption) error
}

// Syncer upserts a parsed catalog into the persistence layer. It runs at
// startup and on demand so the storefront catalog can be managed as a file.
type Syncer struct {
	products    productUpserter
	giftOptions giftOptionUpserter
	logger      *slog.Logger
}

func NewSyncer(products productUpserter, giftOptions giftOptionUpserter, logger *slog.Logger) *Syncer {
	return &Syncer{
		products:    products,
		giftOptions: giftOptions,
		logger:      logger,
	}
}

func (s *Syncer) Sync(ctx context.Context, catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog is required")
	}

	for _, product := range catalog.Products {
		record := &models.Product{
			ID:            product.ID,
			Name:          product.Name,
			Price:         product.Price,
			StockQuantity: product.StockQuantity,
			StockStatus:   product.InStock,
		}
		if err := s.products.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", product.ID, err)
		}
	}

	for _, option := range catalog.GiftOptions {
		record := &models.GiftOption{
			ID:     option.ID,
			Name:   option.Name,
			Price:  option.Price,
			Active: option.Active,
		}
		if err := s.giftOptions.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert gift option %s: %w", option.ID, err)
		}
	}

	s.logger.Info("catalog synced",
		"products", len(catalog.Products),
		"gift_options", len(catalog.GiftOptions))
	return nil
}
