package services

import (
	"context"

	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/email"
)

// OrderEmailSender is the notification surface the order services depend on.
// Every method is best effort from the caller's point of view except
// SendArchiveReport, which gates order deletion.
type OrderEmailSender interface {
	SendOwnerOrderNotice(ctx context.Context, order *db.Order) error
	SendOrderConfirmation(ctx context.Context, order *db.Order) error
	SendStatusUpdate(ctx context.Context, order *db.Order, status db.OrderStatus) error
	SendLowStockAlert(ctx context.Context, productID, productName string, remaining int) error
	SendArchiveReport(ctx context.Context, monthYear string, report []byte) error
}

// StoreEmailSender renders the storefront templates and delivers them through
// the configured provider.
type StoreEmailSender struct {
	provider   email.Provider
	ownerEmail string
}

func NewStoreEmailSender(provider email.Provider, ownerEmail string) *StoreEmailSender {
	return &StoreEmailSender{
		provider:   provider,
		ownerEmail: ownerEmail,
	}
}

func (s *StoreEmailSender) SendOwnerOrderNotice(ctx context.Context, order *db.Order) error {
	return email.SendOwnerOrderNotice(ctx, s.provider, s.ownerEmail, buildOrderInfo(order))
}

func (s *StoreEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	return email.SendOrderConfirmation(ctx, s.provider, buildOrderInfo(order))
}

func (s *StoreEmailSender) SendStatusUpdate(ctx context.Context, order *db.Order, status db.OrderStatus) error {
	return email.SendStatusUpdate(ctx, s.provider, email.StatusUpdateInfo{
		CustomerEmail:  order.Customer.Email,
		CustomerName:   order.Customer.Name,
		Status:         string(status),
		Message:        email.StatusMessage(string(status)),
		OrderReference: orderReference(order),
		TrackingID:     order.TrackingID,
		TrackingNumber: order.TrackingNumber,
	})
}

func (s *StoreEmailSender) SendLowStockAlert(ctx context.Context, productID, productName string, remaining int) error {
	return email.SendLowStockAlert(ctx, s.provider, s.ownerEmail, email.LowStockInfo{
		ProductName:    productName,
		ProductID:      productID,
		RemainingStock: remaining,
	})
}

func (s *StoreEmailSender) SendArchiveReport(ctx context.Context, monthYear string, report []byte) error {
	return email.SendArchiveReport(ctx, s.provider, s.ownerEmail, monthYear, report)
}

func buildOrderInfo(order *db.Order) email.OrderInfo {
	items := make([]email.OrderItemInfo, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, email.OrderItemInfo{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    email.FormatAmount(item.Price),
		})
	}

	address := order.ShippingAddress
	lines := []string{order.Customer.Name, address.Line1}
	if address.Line2 != "" {
		lines = append(lines, address.Line2)
	}
	lines = append(lines,
		address.City+", "+address.State+" "+address.PostalCode,
		address.Country,
	)

	info := email.OrderInfo{
		OrderReference: orderReference(order),
		PaymentID:      order.RazorpayPaymentID,
		CustomerName:   order.Customer.Name,
		CustomerEmail:  order.Customer.Email,
		CustomerPhone:  order.Customer.Phone,
		Items:          items,
		Total:          email.FormatAmount(order.Amount),
		AddressLines:   lines,
	}
	if order.IsGift && order.Gift != nil {
		info.GiftName = order.Gift.Name
		info.GiftCustomText = order.Gift.CustomText
	}
	return info
}

// orderReference prefers the gateway order id, which is what customers see in
// the payment flow. Orders created before gateway checkout fall back to the
// internal id.
func orderReference(order *db.Order) string {
	if order.RazorpayOrderID != "" {
		return order.RazorpayOrderID
	}
	return order.ID.String()
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOwnerOrderNotice(ctx context.Context, order *db.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	return nil
}

func (noopOrderEmailSender) SendStatusUpdate(ctx context.Context, order *db.Order, status db.OrderStatus) error {
	return nil
}

func (noopOrderEmailSender) SendLowStockAlert(ctx context.Context, productID, productName string, remaining int) error {
	return nil
}

func (noopOrderEmailSender) SendArchiveReport(ctx context.Context, monthYear string, report []byte) error {
	return nil
}
