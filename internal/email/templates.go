// Package email provides the storefront email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
)

// OrderInfo carries everything the order confirmation templates need.
type OrderInfo struct {
	OrderReference string
	PaymentID      string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Items          []OrderItemInfo
	Total          string
	AddressLines   []string
	GiftName       string
	GiftCustomText string
}

// OrderItemInfo is a rendered line item row.
type OrderItemInfo struct {
	Name     string
	Quantity int
	Price    string
}

// StatusUpdateInfo carries the status transition email fields.
type StatusUpdateInfo struct {
	CustomerEmail  string
	CustomerName   string
	Status         string
	Message        string
	OrderReference string
	TrackingID     string
	TrackingNumber string
}

// LowStockInfo carries the low-stock alert fields.
type LowStockInfo struct {
	ProductName    string
	ProductID      string
	RemainingStock int
}

var statusMessages = map[string]string{
	"Confirmed":        "Great news! Your silver order has been confirmed and is now being prepared by our master artisans.",
	"Shipped":          "Your silver adornments are on their way! They've officially left our atelier.",
	"Out for Delivery": "Your XIVI pieces are out for delivery and will reach you very soon.",
	"Delivered":        "The wait is over! Your XIVI pieces have been delivered. We hope they bring radiance to your day.",
	"Cancelled":        "Your order has been cancelled as requested or due to processing issues. If this was a mistake, please reach out.",
}

// StatusMessage returns the customer-facing copy for a status transition.
func StatusMessage(status string) string {
	if message, ok := statusMessages[status]; ok {
		return message
	}
	return fmt.Sprintf("Your order status has been updated to %s.", status)
}

const orderTableHTML = `<table style="border-collapse: collapse; width: 100%; font-family: Arial, sans-serif;">
  <thead>
    <tr>
      <th style="padding: 8px 12px; text-align: left; background: #f7f1ff; border: 1px solid #eee;">Product</th>
      <th style="padding: 8px 12px; text-align: left; background: #f7f1ff; border: 1px solid #eee;">Qty</th>
      <th style="padding: 8px 12px; text-align: left; background: #f7f1ff; border: 1px solid #eee;">Price</th>
    </tr>
  </thead>
  <tbody>
  {{- range .Items}}
    <tr>
      <td style="padding: 6px 12px; border: 1px solid #eee;">{{.Name}}</td>
      <td style="padding: 6px 12px; border: 1px solid #eee;">{{.Quantity}}</td>
      <td style="padding: 6px 12px; border: 1px solid #eee;">₹{{.Price}}</td>
    </tr>
  {{- end}}
  </tbody>
</table>`

const addressBlockHTML = `{{range .AddressLines}}<p style="margin:0;">{{.}}</p>
{{end}}`

const ownerOrderHTML = `<h2 style="font-family: 'Playfair Display', serif; color:#9b2241;">New XIVI order</h2>
<p>A new order has been placed on XIVI.</p>
<p><strong>Customer:</strong> {{.CustomerName}}</p>
<p><strong>Email:</strong> {{.CustomerEmail}}</p>
<p><strong>Phone:</strong> {{.CustomerPhone}}</p>
<p><strong>Order ID:</strong> {{.OrderReference}}</p>
<p><strong>Payment ID:</strong> {{if .PaymentID}}{{.PaymentID}}{{else}}Pending{{end}}</p>
{{if .GiftName}}<p><strong>Gift wrap:</strong> {{.GiftName}}{{if .GiftCustomText}} with note "{{.GiftCustomText}}"{{end}}</p>{{end}}
<h3 style="margin-top:24px;">Items</h3>
{{template "order_table" .}}
<p style="margin-top:24px;"><strong>Total:</strong> ₹{{.Total}}</p>
<h3 style="margin-top:24px;">Shipping Address</h3>
{{template "address_block" .}}`

const customerOrderHTML = `<h2 style="font-family: 'Playfair Display', serif; color:#9b2241;">Thank you for your order!</h2>
<p>Hello {{.CustomerName}},</p>
<p>We're delighted to confirm your XIVI order. Our artisans will begin preparing your silver pieces.</p>
<p><strong>Order reference:</strong> {{.OrderReference}}</p>
{{if .GiftName}}<p>Your order will arrive gift-wrapped: <strong>{{.GiftName}}</strong>{{if .GiftCustomText}} with your note "{{.GiftCustomText}}"{{end}}.</p>{{end}}
<h3 style="margin-top:24px;">Your Selection</h3>
{{template "order_table" .}}
<p style="margin-top:24px;"><strong>Total paid:</strong> ₹{{.Total}}</p>
<h3 style="margin-top:24px;">Shipping Address</h3>
{{template "address_block" .}}
<p style="margin-top:24px;">We'll send a dispatch update as soon as your silver jewels leave our atelier.</p>
<p style="margin-top:16px;">With warmth,<br/>XIVI</p>`

const statusUpdateHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #f0f0f0; border-radius: 12px; overflow: hidden;">
  <div style="background: linear-gradient(135deg, #f8b9d4 0%, #ffd7ef 100%); padding: 32px 24px; text-align: center;">
    <h1 style="margin: 0; color: #8a1f3e; font-size: 28px; font-family: 'Cormorant Garamond', serif;">XIVI</h1>
  </div>
  <div style="padding: 24px; color: #444; line-height: 1.6;">
    <h2 style="color: #8a1f3e;">Order Update: {{.Status}}</h2>
    <p>Dear {{.CustomerName}},</p>
    <p>{{.Message}}</p>
    {{- if .ShowTracking}}
    <div style="margin-top: 20px; padding: 15px; background-color: #f0fdf4; border-left: 4px solid #10b981; border-radius: 4px;">
      <h4 style="margin: 0 0 10px 0; color: #065f46;">Tracking Information</h4>
      {{if .TrackingID}}<p style="margin: 5px 0;"><strong>Tracking ID:</strong> {{.TrackingID}}</p>{{end}}
      {{if .TrackingNumber}}<p style="margin: 5px 0;"><a href="{{.TrackingNumber}}" style="color: #059669; font-weight: bold; text-decoration: underline;">Track your package here &rarr;</a></p>{{end}}
    </div>
    {{- end}}
    <div style="background: #fdf2f7; padding: 16px; border-radius: 8px; margin: 24px 0;">
      <p style="margin: 0; font-size: 14px; color: #7a1e3a;"><strong>Order ID:</strong> #{{.OrderReference}}</p>
      <p style="margin: 4px 0 0; font-size: 14px; color: #7a1e3a;"><strong>Status:</strong> {{.Status}}</p>
    </div>
    <p>If you have any questions, simply reply to this email or reach out to us on WhatsApp.</p>
    <p style="margin-top: 32px;">Stay radiant,<br/><strong>Team XIVI</strong></p>
  </div>
</div>`

const lowStockHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e2e8f0; border-radius: 8px;">
  <div style="background-color: #fff1f2; padding: 24px; text-align: center; border-bottom: 1px solid #e2e8f0;">
    <h2 style="margin: 0; color: #be123c;">Low Stock Alert</h2>
  </div>
  <div style="padding: 24px;">
    <p><strong>Item:</strong> {{.ProductName}}</p>
    <p><strong>ID:</strong> {{.ProductID}}</p>
    <p><strong>Remaining Quantity:</strong> <span style="font-size: 18px; font-weight: bold; color: #be123c;">{{.RemainingStock}}</span></p>
    <p>Please restock this item soon to avoid running out of inventory.</p>
  </div>
</div>`

var emailTemplates = template.Must(newTemplates())

func newTemplates() (*template.Template, error) {
	root := template.New("email")
	for name, body := range map[string]string{
		"order_table":    orderTableHTML,
		"address_block":  addressBlockHTML,
		"owner_order":    ownerOrderHTML,
		"customer_order": customerOrderHTML,
		"status_update":  statusUpdateHTML,
		"low_stock":      lowStockHTML,
	} {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
	}
	return root, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

// SendOwnerOrderNotice tells the store owner about a freshly paid order.
func SendOwnerOrderNotice(ctx context.Context, provider Provider, ownerEmail string, info OrderInfo) error {
	html, err := render("owner_order", info)
	if err != nil {
		return err
	}
	return provider.SendEmail(ctx, &Email{
		To:      ownerEmail,
		Subject: "New XIVI Order",
		HTML:    html,
	})
}

// SendOrderConfirmation thanks the customer for a paid order.
func SendOrderConfirmation(ctx context.Context, provider Provider, info OrderInfo) error {
	html, err := render("customer_order", info)
	if err != nil {
		return err
	}
	return provider.SendEmail(ctx, &Email{
		To:      info.CustomerEmail,
		Subject: "Your XIVI order is confirmed",
		HTML:    html,
	})
}

// SendStatusUpdate notifies the customer about an order status change.
func SendStatusUpdate(ctx context.Context, provider Provider, info StatusUpdateInfo) error {
	data := struct {
		StatusUpdateInfo
		ShowTracking bool
	}{
		StatusUpdateInfo: info,
		ShowTracking: (info.Status == "Shipped" || info.Status == "Out for Delivery") &&
			(info.TrackingID != "" || info.TrackingNumber != ""),
	}
	html, err := render("status_update", data)
	if err != nil {
		return err
	}
	return provider.SendEmail(ctx, &Email{
		To:      info.CustomerEmail,
		Subject: fmt.Sprintf("Update on your XIVI Order #%s: %s", info.OrderReference, info.Status),
		HTML:    html,
	})
}

// SendLowStockAlert warns the store owner that a product is nearly sold out.
func SendLowStockAlert(ctx context.Context, provider Provider, ownerEmail string, info LowStockInfo) error {
	html, err := render("low_stock", info)
	if err != nil {
		return err
	}
	return provider.SendEmail(ctx, &Email{
		To:      ownerEmail,
		Subject: fmt.Sprintf("Running Low: %s", info.ProductName),
		HTML:    html,
	})
}

// SendArchiveReport mails the retention CSV export to the store owner.
func SendArchiveReport(ctx context.Context, provider Provider, ownerEmail, monthYear string, report []byte) error {
	filename := fmt.Sprintf("XIVI_Orders_Archive_%s.csv", strings.ReplaceAll(monthYear, " ", "_"))
	return provider.SendEmail(ctx, &Email{
		To:      ownerEmail,
		Subject: fmt.Sprintf("Order Archive Report - %s", monthYear),
		Text: fmt.Sprintf("Please find attached the archived orders for %s. "+
			"These orders have been removed from the live database to save space.", monthYear),
		Attachments: []Attachment{{
			Filename:    filename,
			ContentType: "text/csv",
			Content:     report,
		}},
	})
}

// FormatAmount renders a rupee amount with Indian digit grouping, matching
// the storefront's display format (e.g. 150000 -> 1,50,000).
func FormatAmount(amount float64) string {
	whole := int64(amount)
	fraction := amount - float64(whole)

	digits := fmt.Sprintf("%d", whole)
	negative := false
	if strings.HasPrefix(digits, "-") {
		negative = true
		digits = digits[1:]
	}

	var groups []string
	if len(digits) > 3 {
		head := digits[:len(digits)-3]
		groups = append(groups, digits[len(digits)-3:])
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
	} else {
		groups = []string{digits}
	}

	formatted := strings.Join(groups, ",")
	if fraction > 0.004 {
		formatted = fmt.Sprintf("%s.%02d", formatted, int(fraction*100+0.5))
	}
	if negative {
		formatted = "-" + formatted
	}
	return formatted
}
