package models

import "time"

// Product is the slice of the catalog the order pipeline touches: identity
// plus inventory. Stock status is derived when a decrement empties the shelf
// but can also be toggled independently from the back office.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	StockStatus   bool      `json:"stock_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GiftOption is a purchasable gift add-on. Orders snapshot its name and price
// at creation time.
type GiftOption struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}
