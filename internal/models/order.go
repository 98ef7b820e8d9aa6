package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "Confirmed"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
	StatusFailed         OrderStatus = "failed"
)

// Customer is the buyer contact captured at checkout.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Address is the shipping destination captured at checkout.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderItem is a line item snapshot. Name and price are copied from the
// catalog at order time so later catalog edits never alter historical orders.
type OrderItem struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// GiftSelection is the gift option snapshot attached to an order.
type GiftSelection struct {
	OptionID   string  `json:"optionId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CustomText string  `json:"customText,omitempty"`
}

type Order struct {
	ID                uuid.UUID      `json:"id"`
	RazorpayOrderID   string         `json:"razorpay_order_id"`
	RazorpayPaymentID string         `json:"razorpay_payment_id"`
	RazorpaySignature string         `json:"razorpay_signature"`
	Amount            float64        `json:"amount"`
	AmountMinor       int64          `json:"amount_minor"`
	Currency          string         `json:"currency"`
	Customer          Customer       `json:"customer"`
	ShippingAddress   Address        `json:"shipping_address"`
	Items             []OrderItem    `json:"items"`
	Notes             string         `json:"notes"`
	IsGift            bool           `json:"is_gift"`
	Gift              *GiftSelection `json:"gift,omitempty"`
	TrackingID        string         `json:"tracking_id"`
	TrackingNumber    string         `json:"tracking_number"`
	Status            OrderStatus    `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	PaidAt            time.Time      `json:"paid_at"`
}

// statusRank orders the forward-only delivery sequence. Cancelled and the
// pre-payment failure state sit outside the sequence and are handled
// separately.
var statusRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusShipped:        2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValidStatus reports whether s is a status the transition manager accepts
// as a target.
func IsValidStatus(s OrderStatus) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order may move from current to next.
// Strictly forward moves through the ranked sequence are allowed from
// Confirmed onward; Cancelled is allowed from any non-terminal state.
// A pending order leaves pending only via Cancelled, because Confirmed is
// set exclusively by payment verification. Backward and re-entrant moves
// are rejected.
func CanTransition(current, next OrderStatus) bool {
	if current.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	if current == StatusPending || current == StatusFailed {
		return false
	}
	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}
	return nextRank > currentRank
}
