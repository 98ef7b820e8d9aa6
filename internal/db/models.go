package db

import "github.com/xivishop/xivi/internal/models"

type Order = models.Order
type OrderStatus = models.OrderStatus
type GiftSelection = models.GiftSelection
type Product = models.Product
type GiftOption = models.GiftOption

const (
	StatusPending        = models.StatusPending
	StatusConfirmed      = models.StatusConfirmed
	StatusShipped        = models.StatusShipped
	StatusOutForDelivery = models.StatusOutForDelivery
	StatusDelivered      = models.StatusDelivered
	StatusCancelled      = models.StatusCancelled
	StatusFailed         = models.StatusFailed
)
