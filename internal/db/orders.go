package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
	amount, amount_minor, currency,
	customer_name, email, phone, address, products, notes,
	is_gift, gift_option_id, gift_option_name, gift_option_price, gift_custom_text,
	tracking_id, tracking_number, status, created_at, updated_at, paid_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	giftOptionID := pgtype.Text{}
	giftOptionName := pgtype.Text{}
	giftOptionPrice := pgtype.Float8{}
	giftCustomText := pgtype.Text{}
	if order.Gift != nil {
		giftOptionID = pgtype.Text{String: order.Gift.OptionID, Valid: order.Gift.OptionID != ""}
		giftOptionName = pgtype.Text{String: order.Gift.Name, Valid: order.Gift.Name != ""}
		giftOptionPrice = pgtype.Float8{Float64: order.Gift.Price, Valid: true}
		giftCustomText = pgtype.Text{String: order.Gift.CustomText, Valid: order.Gift.CustomText != ""}
	}

	query := `
		INSERT INTO orders (
			razorpay_order_id, amount, amount_minor, currency,
			customer_name, email, phone, address, products, notes,
			is_gift, gift_option_id, gift_option_name, gift_option_price, gift_custom_text,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at
	`
	var createdAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx, query,
		order.RazorpayOrderID, order.Amount, order.AmountMinor, order.Currency,
		order.Customer.Name, order.Customer.Email, order.Customer.Phone,
		addressJSON, itemsJSON, order.Notes,
		order.IsGift, giftOptionID, giftOptionName, giftOptionPrice, giftCustomText,
		string(order.Status),
	).Scan(&order.ID, &createdAt)
	if err != nil {
		return err
	}
	order.CreatedAt = createdAt.Time
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return s.scanOrder(row)
}

func (s *OrderStore) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE razorpay_order_id = $1`, razorpayOrderID)
	return s.scanOrder(row)
}

// MarkConfirmed flips a pending order to Confirmed, recording the payment id,
// signature and paid-at timestamp. It reports whether the transition fired:
// a second call against an already-Confirmed order affects zero rows and
// returns false with no error, which is what makes verification idempotent.
func (s *OrderStore) MarkConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, razorpay_payment_id = $2, razorpay_signature = $3,
		    paid_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusConfirmed, paymentID, signature, orderID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkFailed records a failed signature check against a pending order.
func (s *OrderStore) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	_, err := s.pool.Exec(ctx, query, StatusFailed, orderID)
	return err
}

// Transition moves an order to next, guarded by the set of statuses the
// caller allows as sources. Zero rows affected means the stored status was
// not in the allowed set and the transition is rejected.
func (s *OrderStore) Transition(ctx context.Context, orderID uuid.UUID, next OrderStatus, trackingID, trackingNumber string, allowedFrom []OrderStatus) error {
	if len(allowedFrom) == 0 {
		return ErrInvalidStatusTransition
	}
	sources := make([]string, len(allowedFrom))
	for i, status := range allowedFrom {
		sources[i] = string(status)
	}

	query := `
		UPDATE orders
		SET status = $1,
		    tracking_id = COALESCE(NULLIF($2, ''), tracking_id),
		    tracking_number = COALESCE(NULLIF($3, ''), tracking_number),
		    updated_at = NOW()
		WHERE id = $4 AND status = ANY($5)
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(next), trackingID, trackingNumber, orderID, sources)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidStatusTransition, next)
	}
	return nil
}

// ListOlderThan returns every order created at or before the cutoff.
func (s *OrderStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE created_at <= $1 ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// DeleteOlderThan removes every order created at or before the cutoff and
// returns the number of rows deleted.
func (s *OrderStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *OrderStore) scanOrder(row rowScanner) (*Order, error) {
	var (
		order           Order
		paymentID       pgtype.Text
		signature       pgtype.Text
		addressJSON     []byte
		itemsJSON       []byte
		giftOptionID    pgtype.Text
		giftOptionName  pgtype.Text
		giftOptionPrice pgtype.Float8
		giftCustomText  pgtype.Text
		trackingID      pgtype.Text
		trackingNumber  pgtype.Text
		status          string
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		paidAt          pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID, &order.RazorpayOrderID, &paymentID, &signature,
		&order.Amount, &order.AmountMinor, &order.Currency,
		&order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
		&addressJSON, &itemsJSON, &order.Notes,
		&order.IsGift, &giftOptionID, &giftOptionName, &giftOptionPrice, &giftCustomText,
		&trackingID, &trackingNumber, &status, &createdAt, &updatedAt, &paidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if paymentID.Valid {
		order.RazorpayPaymentID = paymentID.String
	}
	if signature.Valid {
		order.RazorpaySignature = signature.String
	}
	if trackingID.Valid {
		order.TrackingID = trackingID.String
	}
	if trackingNumber.Valid {
		order.TrackingNumber = trackingNumber.String
	}
	order.Status = OrderStatus(status)
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	if order.IsGift && giftOptionName.Valid {
		order.Gift = &GiftSelection{
			OptionID:   giftOptionID.String,
			Name:       giftOptionName.String,
			CustomText: giftCustomText.String,
		}
		if giftOptionPrice.Valid {
			order.Gift.Price = giftOptionPrice.Float64
		}
	}

	return &order, nil
}
