package email

import (
	"context"
	"strings"
	"testing"
)

type capturingProvider struct {
	sent []*Email
}

func (c *capturingProvider) SendEmail(ctx context.Context, email *Email) error {
	_ = ctx
	c.sent = append(c.sent, email)
	return nil
}

func testOrderInfo() OrderInfo {
	return OrderInfo{
		OrderReference: "order_Nxy123",
		PaymentID:      "pay_Nxy456",
		CustomerName:   "Asha Rao",
		CustomerEmail:  "asha@example.com",
		CustomerPhone:  "9876543210",
		Items: []OrderItemInfo{
			{Name: "Moonstone Ring", Quantity: 2, Price: "1,200"},
			{Name: "Silver Anklet", Quantity: 1, Price: "900"},
		},
		Total:        "3,300",
		AddressLines: []string{"12 Lotus Lane", "Bengaluru, KA 560001", "India"},
	}
}

func TestSendOrderConfirmation(t *testing.T) {
	t.Parallel()

	provider := &capturingProvider{}
	if err := SendOrderConfirmation(context.Background(), provider, testOrderInfo()); err != nil {
		t.Fatalf("SendOrderConfirmation() = %v", err)
	}

	if len(provider.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(provider.sent))
	}
	sent := provider.sent[0]
	if sent.To != "asha@example.com" {
		t.Errorf("To = %q, want customer email", sent.To)
	}
	for _, want := range []string{"order_Nxy123", "Moonstone Ring", "3,300", "12 Lotus Lane"} {
		if !strings.Contains(sent.HTML, want) {
			t.Errorf("confirmation HTML missing %q", want)
		}
	}
}

func TestSendOwnerOrderNoticeIncludesGift(t *testing.T) {
	t.Parallel()

	info := testOrderInfo()
	info.GiftName = "Velvet Box"
	info.GiftCustomText = "Happy Birthday"

	provider := &capturingProvider{}
	if err := SendOwnerOrderNotice(context.Background(), provider, "hello@xivi.in", info); err != nil {
		t.Fatalf("SendOwnerOrderNotice() = %v", err)
	}

	sent := provider.sent[0]
	if sent.To != "hello@xivi.in" {
		t.Errorf("To = %q, want owner email", sent.To)
	}
	if !strings.Contains(sent.HTML, "Velvet Box") || !strings.Contains(sent.HTML, "Happy Birthday") {
		t.Errorf("owner HTML missing gift snapshot: %s", sent.HTML)
	}
}

func TestSendStatusUpdateTracking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		info         StatusUpdateInfo
		wantTracking bool
	}{
		{
			name: "shipped with tracking",
			info: StatusUpdateInfo{
				CustomerEmail:  "asha@example.com",
				CustomerName:   "Asha Rao",
				Status:         "Shipped",
				Message:        StatusMessage("Shipped"),
				OrderReference: "abc12345",
				TrackingID:     "AWB-77",
			},
			wantTracking: true,
		},
		{
			name: "confirmed never shows tracking",
			info: StatusUpdateInfo{
				CustomerEmail:  "asha@example.com",
				CustomerName:   "Asha Rao",
				Status:         "Confirmed",
				Message:        StatusMessage("Confirmed"),
				OrderReference: "abc12345",
				TrackingID:     "AWB-77",
			},
			wantTracking: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			provider := &capturingProvider{}
			if err := SendStatusUpdate(context.Background(), provider, tc.info); err != nil {
				t.Fatalf("SendStatusUpdate() = %v", err)
			}
			got := strings.Contains(provider.sent[0].HTML, "Tracking Information")
			if got != tc.wantTracking {
				t.Errorf("tracking block shown = %v, want %v", got, tc.wantTracking)
			}
		})
	}
}

func TestSendArchiveReportAttachesCSV(t *testing.T) {
	t.Parallel()

	provider := &capturingProvider{}
	csv := []byte("Order ID,Customer Name\nabc,Asha\n")
	if err := SendArchiveReport(context.Background(), provider, "hello@xivi.in", "August 2026", csv); err != nil {
		t.Fatalf("SendArchiveReport() = %v", err)
	}

	sent := provider.sent[0]
	if len(sent.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(sent.Attachments))
	}
	attachment := sent.Attachments[0]
	if attachment.Filename != "XIVI_Orders_Archive_August_2026.csv" {
		t.Errorf("attachment filename = %q", attachment.Filename)
	}
	if string(attachment.Content) != string(csv) {
		t.Errorf("attachment content mismatch")
	}
}

func TestDisabledProviderFailsLoudly(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{Provider: "disabled"})
	if err != nil {
		t.Fatalf("NewProvider() = %v", err)
	}
	if err := provider.SendEmail(context.Background(), &Email{To: "a@b.c"}); err == nil {
		t.Fatal("disabled provider should return an error, got nil")
	}
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1,500"},
		{150000, "1,50,000"},
		{12345678, "1,23,45,678"},
		{1500.5, "1,500.50"},
	}

	for _, tc := range tests {
		if got := FormatAmount(tc.amount); got != tc.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}
