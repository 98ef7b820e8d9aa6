// Package razorpay provides a thin client for the Razorpay Orders API.
package razorpay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client creates orders against the Razorpay REST API. Requests carry the
// caller's context so gateway calls honor bounded timeouts.
type Client struct {
	keyID   string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// OrderRequest is the payload for creating a gateway order. Amount is in the
// currency's minor unit (paise for INR).
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway order object returned by Razorpay.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func NewClient(keyID, keySecret string) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "razorpay",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		keyID:   keyID,
		http:    httpClient,
		breaker: breaker,
	}
}

// KeyID returns the public key identifier the checkout client needs to open
// the hosted payment UI. The secret never leaves this package.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder opens a gateway order for the given amount.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var (
			order  Order
			apiErr apiError
		)
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&order).
			SetError(&apiErr).
			Post("/orders")
		if err != nil {
			return nil, fmt.Errorf("razorpay order create failed: %w", err)
		}
		if resp.IsError() {
			if apiErr.Error.Description != "" {
				return nil, fmt.Errorf("razorpay order create failed: %s (%s)", apiErr.Error.Description, apiErr.Error.Code)
			}
			return nil, fmt.Errorf("razorpay order create failed: status %d", resp.StatusCode())
		}
		if order.ID == "" {
			return nil, fmt.Errorf("razorpay order create returned no order id")
		}
		return &order, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}
