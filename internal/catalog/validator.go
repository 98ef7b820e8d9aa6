package catalog

// Package catalog provides catalog validation.

import (
	"fmt"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(catalog *Catalog) error {
	if err := v.validateStore(&catalog.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	if len(catalog.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	ids := make(map[string]bool)
	for i, product := range catalog.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if ids[product.ID] {
			return fmt.Errorf("duplicate product id: %s", product.ID)
		}
		ids[product.ID] = true
	}

	optionIDs := make(map[string]bool)
	for i, option := range catalog.GiftOptions {
		if err := v.validateGiftOption(&option); err != nil {
			return fmt.Errorf("gift option %d validation failed: %w", i, err)
		}

		if optionIDs[option.ID] {
			return fmt.Errorf("duplicate gift option id: %s", option.ID)
		}
		optionIDs[option.ID] = true
	}

	return nil
}

func (v *Validator) validateStore(store *StoreConfig) error {
	if strings.TrimSpace(store.Name) == "" {
		return fmt.Errorf("store name is required")
	}

	if store.Currency != "INR" {
		return fmt.Errorf("only INR currency is supported")
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	if strings.TrimSpace(product.ID) == "" {
		return fmt.Errorf("product id is required")
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.Price <= 0 {
		return fmt.Errorf("product price must be positive")
	}

	if product.StockQuantity < 0 {
		return fmt.Errorf("product stock quantity must be zero or positive")
	}

	return nil
}

func (v *Validator) validateGiftOption(option *GiftOptionConfig) error {
	if strings.TrimSpace(option.ID) == "" {
		return fmt.Errorf("gift option id is required")
	}

	if strings.TrimSpace(option.Name) == "" {
		return fmt.Errorf("gift option name is required")
	}

	if option.Price < 0 {
		return fmt.Errorf("gift option price must be zero or positive")
	}

	return nil
}
