package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xivishop/xivi/internal/cache"
	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/models"
	"github.com/xivishop/xivi/internal/razorpay"
)

type fakeOrderStore struct {
	mu           sync.Mutex
	created      []*db.Order
	byRazorpayID map[string]*db.Order
	confirmed    map[uuid.UUID]bool
	failed       []uuid.UUID
	createErr    error
	getByIDErr   error
	byID         map[uuid.UUID]*db.Order
	transitions  []transitionCall
}

type transitionCall struct {
	orderID        uuid.UUID
	next           db.OrderStatus
	trackingID     string
	trackingNumber string
	allowedFrom    []db.OrderStatus
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		byRazorpayID: make(map[string]*db.Order),
		byID:         make(map[uuid.UUID]*db.Order),
		confirmed:    make(map[uuid.UUID]bool),
	}
}

func (f *fakeOrderStore) add(order *db.Order) {
	f.byRazorpayID[order.RazorpayOrderID] = order
	f.byID[order.ID] = order
}

func (f *fakeOrderStore) Create(ctx context.Context, order *db.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	f.created = append(f.created, order)
	return nil
}

func (f *fakeOrderStore) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byRazorpayID[razorpayOrderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	order, ok := f.byID[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) MarkConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmed[orderID] {
		return false, nil
	}
	f.confirmed[orderID] = true
	return true, nil
}

func (f *fakeOrderStore) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, orderID)
	return nil
}

func (f *fakeOrderStore) Transition(ctx context.Context, orderID uuid.UUID, next db.OrderStatus, trackingID, trackingNumber string, allowedFrom []db.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byID[orderID]
	if !ok {
		return db.ErrInvalidStatusTransition
	}
	allowed := false
	for _, status := range allowedFrom {
		if order.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return db.ErrInvalidStatusTransition
	}
	f.transitions = append(f.transitions, transitionCall{
		orderID:        orderID,
		next:           next,
		trackingID:     trackingID,
		trackingNumber: trackingNumber,
		allowedFrom:    allowedFrom,
	})
	order.Status = next
	return nil
}

type fakeProductStore struct {
	mu         sync.Mutex
	products   map[string]*db.Product
	decrements []string
}

func newFakeProductStore(products ...*db.Product) *fakeProductStore {
	store := &fakeProductStore{products: make(map[string]*db.Product)}
	for _, product := range products {
		store.products[product.ID] = product
	}
	return store
}

func (f *fakeProductStore) GetByID(ctx context.Context, productID string) (*db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[productID]
	if !ok {
		return nil, db.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductStore) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[productID]
	if !ok {
		return 0, db.ErrProductNotFound
	}
	product.StockQuantity -= quantity
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}
	f.decrements = append(f.decrements, productID)
	return product.StockQuantity, nil
}

type fakeGiftStore struct {
	options map[string]*db.GiftOption
}

func (f *fakeGiftStore) GetByID(ctx context.Context, optionID string) (*db.GiftOption, error) {
	option, ok := f.options[optionID]
	if !ok {
		return nil, db.ErrGiftOptionNotFound
	}
	return option, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []razorpay.OrderRequest
	err      error
}

func (f *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &razorpay.Order{
		ID:       "order_test123",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

type recordingEmailSender struct {
	mu            sync.Mutex
	ownerNotices  int
	confirmations int
	statusUpdates []db.OrderStatus
	lowStock      []string
	archiveMonth  string
	archiveReport []byte
	archiveErr    error
}

func (r *recordingEmailSender) SendOwnerOrderNotice(ctx context.Context, order *db.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerNotices++
	return nil
}

func (r *recordingEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations++
	return nil
}

func (r *recordingEmailSender) SendStatusUpdate(ctx context.Context, order *db.Order, status db.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

func (r *recordingEmailSender) SendLowStockAlert(ctx context.Context, productID, productName string, remaining int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lowStock = append(r.lowStock, productID)
	return nil
}

func (r *recordingEmailSender) SendArchiveReport(ctx context.Context, monthYear string, report []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.archiveErr != nil {
		return r.archiveErr
	}
	r.archiveMonth = monthYear
	r.archiveReport = report
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Customer: CustomerInput{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "9876543210",
		},
		ShippingAddress: AddressInput{
			Line1:      "14 Lotus Apartments",
			City:       "Mumbai",
			State:      "Maharashtra",
			PostalCode: "400001",
			Country:    "India",
		},
		Items: []OrderItemInput{
			{ProductID: "ring-moonstone", Name: "Moonstone Ring", Price: 1200, Quantity: 2},
		},
	}
}

func moonstoneRing() *db.Product {
	return &db.Product{
		ID:            "ring-moonstone",
		Name:          "Moonstone Ring",
		Price:         1200,
		StockQuantity: 10,
		StockStatus:   true,
	}
}

func newTestCheckout(orders *fakeOrderStore, products *fakeProductStore, gifts *fakeGiftStore, gateway paymentGateway, emails OrderEmailSender) *CheckoutService {
	if gifts == nil {
		gifts = &fakeGiftStore{}
	}
	return NewCheckoutService(orders, products, gifts, gateway, "secret", nil, emails, "INR", testLogger())
}

func TestCreateRejectsInvalidIntake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		wantIn string
	}{
		{
			name:   "missing customer name",
			mutate: func(r *CreateOrderRequest) { r.Customer.Name = "" },
			wantIn: "customer.name",
		},
		{
			name:   "bad email",
			mutate: func(r *CreateOrderRequest) { r.Customer.Email = "not-an-email" },
			wantIn: "customer.email",
		},
		{
			name:   "short phone",
			mutate: func(r *CreateOrderRequest) { r.Customer.Phone = "12345" },
			wantIn: "customer.phone",
		},
		{
			name:   "short address line",
			mutate: func(r *CreateOrderRequest) { r.ShippingAddress.Line1 = "x" },
			wantIn: "shippingAddress.line1",
		},
		{
			name:   "no items",
			mutate: func(r *CreateOrderRequest) { r.Items = nil },
			wantIn: "items",
		},
		{
			name:   "zero quantity",
			mutate: func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 },
			wantIn: "quantity",
		},
		{
			name:   "missing item name",
			mutate: func(r *CreateOrderRequest) { r.Items[0].Name = "" },
			wantIn: "name",
		},
		{
			name:   "zero item price",
			mutate: func(r *CreateOrderRequest) { r.Items[0].Price = 0 },
			wantIn: "price",
		},
		{
			name:   "negative item price",
			mutate: func(r *CreateOrderRequest) { r.Items[0].Price = -1 },
			wantIn: "price",
		},
		{
			name:   "gift flag without gift option",
			mutate: func(r *CreateOrderRequest) { r.IsGift = true },
			wantIn: "giftOptionId",
		},
		{
			name:   "oversized notes",
			mutate: func(r *CreateOrderRequest) { r.Notes = strings.Repeat("a", 501) },
			wantIn: "notes",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			service := newTestCheckout(newFakeOrderStore(), newFakeProductStore(moonstoneRing()), nil, &fakeGateway{}, nil)

			req := validCreateRequest()
			tc.mutate(&req)

			_, err := service.Create(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() = %v, want ValidationError", err)
			}
			if !strings.Contains(verr.Error(), tc.wantIn) {
				t.Fatalf("ValidationError %q does not mention %q", verr.Error(), tc.wantIn)
			}
		})
	}
}

func TestCreatePricesFromCatalog(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	gateway := &fakeGateway{}
	service := newTestCheckout(orders, newFakeProductStore(moonstoneRing()), nil, gateway, nil)

	req := validCreateRequest()
	req.Items[0].Price = 5 // client-side price tampering is ignored

	result, err := service.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	if result.AmountMinor != 240000 {
		t.Fatalf("AmountMinor = %d, want 240000", result.AmountMinor)
	}
	if result.Currency != "INR" {
		t.Fatalf("Currency = %q, want INR", result.Currency)
	}
	if result.RazorpayOrderID != "order_test123" {
		t.Fatalf("RazorpayOrderID = %q", result.RazorpayOrderID)
	}
	if result.RazorpayKey != "rzp_test_key" {
		t.Fatalf("RazorpayKey = %q", result.RazorpayKey)
	}
	if result.Status != db.StatusPending {
		t.Fatalf("Status = %q, want pending", result.Status)
	}

	if len(gateway.requests) != 1 {
		t.Fatalf("gateway requests = %d, want 1", len(gateway.requests))
	}
	if !strings.HasPrefix(gateway.requests[0].Receipt, "xivi_") {
		t.Fatalf("receipt = %q, want xivi_ prefix", gateway.requests[0].Receipt)
	}

	if len(orders.created) != 1 {
		t.Fatalf("persisted orders = %d, want 1", len(orders.created))
	}
	order := orders.created[0]
	if order.Items[0].Price != 1200 || order.Items[0].Name != "Moonstone Ring" {
		t.Fatalf("item snapshot = %+v, want catalog name and price", order.Items[0])
	}
	if order.Amount != 2400 {
		t.Fatalf("order amount = %v, want 2400", order.Amount)
	}
}

func TestCreateAddsGiftPrice(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	gifts := &fakeGiftStore{options: map[string]*db.GiftOption{
		"velvet-box": {ID: "velvet-box", Name: "Velvet Box", Price: 150, Active: true},
	}}
	service := newTestCheckout(orders, newFakeProductStore(moonstoneRing()), gifts, &fakeGateway{}, nil)

	req := validCreateRequest()
	req.IsGift = true
	req.GiftOptionID = "velvet-box"
	req.GiftOptionPrice = 9999 // snapshot comes from the catalog option
	req.GiftCustomText = "Happy Birthday"

	result, err := service.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if result.AmountMinor != 255000 {
		t.Fatalf("AmountMinor = %d, want 255000", result.AmountMinor)
	}

	order := orders.created[0]
	if order.Gift == nil || order.Gift.Name != "Velvet Box" || order.Gift.CustomText != "Happy Birthday" {
		t.Fatalf("gift snapshot = %+v", order.Gift)
	}
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	t.Parallel()

	service := newTestCheckout(newFakeOrderStore(), newFakeProductStore(), nil, &fakeGateway{}, nil)

	_, err := service.Create(context.Background(), validCreateRequest())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() = %v, want ValidationError for unknown product", err)
	}
}

func TestCreateRejectsOutOfStockProduct(t *testing.T) {
	t.Parallel()

	product := moonstoneRing()
	product.StockQuantity = 0
	product.StockStatus = false
	service := newTestCheckout(newFakeOrderStore(), newFakeProductStore(product), nil, &fakeGateway{}, nil)

	_, err := service.Create(context.Background(), validCreateRequest())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() = %v, want ValidationError for out of stock", err)
	}
}

func TestCreateWithoutGatewayFailsExplicitly(t *testing.T) {
	t.Parallel()

	service := NewCheckoutService(newFakeOrderStore(), newFakeProductStore(moonstoneRing()), &fakeGiftStore{}, nil, "", nil, nil, "INR", testLogger())

	_, err := service.Create(context.Background(), validCreateRequest())
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("Create() = %v, want ErrGatewayUnavailable", err)
	}
}

func TestCreateGatewayFailure(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	gateway := &fakeGateway{err: errors.New("gateway down")}
	service := newTestCheckout(orders, newFakeProductStore(moonstoneRing()), nil, gateway, nil)

	_, err := service.Create(context.Background(), validCreateRequest())
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("Create() = %v, want ErrGatewayUnavailable", err)
	}
	if len(orders.created) != 0 {
		t.Fatalf("order persisted despite gateway failure")
	}
}

func storedPendingOrder() *db.Order {
	return &db.Order{
		ID:              uuid.New(),
		RazorpayOrderID: "order_abc",
		Amount:          2400,
		AmountMinor:     240000,
		Currency:        "INR",
		Customer: models.Customer{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "9876543210",
		},
		Items: []models.OrderItem{
			{ProductID: "ring-moonstone", Name: "Moonstone Ring", Price: 1200, Quantity: 2},
		},
		Status: db.StatusPending,
	}
}

func TestVerifyConfirmsOrderOnce(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	products := newFakeProductStore(moonstoneRing())
	emails := &recordingEmailSender{}
	service := newTestCheckout(orders, products, nil, &fakeGateway{}, emails)

	order := storedPendingOrder()
	orders.add(order)

	signature := razorpay.ExpectedSignature("secret", "order_abc", "pay_1")
	result, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	if result.AlreadyConfirmed {
		t.Fatalf("AlreadyConfirmed = true on first verification")
	}
	service.Wait()

	if got := products.products["ring-moonstone"].StockQuantity; got != 8 {
		t.Fatalf("stock after settle = %d, want 8", got)
	}
	if emails.ownerNotices != 1 || emails.confirmations != 1 {
		t.Fatalf("emails sent = %d owner, %d customer, want 1 each", emails.ownerNotices, emails.confirmations)
	}

	// Replay of the same confirmation is a no-op.
	result, err = service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("Verify() replay = %v", err)
	}
	if !result.AlreadyConfirmed {
		t.Fatalf("AlreadyConfirmed = false on replay")
	}
	service.Wait()

	if got := products.products["ring-moonstone"].StockQuantity; got != 8 {
		t.Fatalf("stock decremented twice, got %d", got)
	}
	if emails.ownerNotices != 1 || emails.confirmations != 1 {
		t.Fatalf("duplicate emails on replay: %d owner, %d customer", emails.ownerNotices, emails.confirmations)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	emails := &recordingEmailSender{}
	service := newTestCheckout(orders, newFakeProductStore(moonstoneRing()), nil, &fakeGateway{}, emails)

	order := storedPendingOrder()
	orders.add(order)

	_, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: strings.Repeat("0", 64),
	})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify() = %v, want ErrInvalidSignature", err)
	}
	if len(orders.failed) != 1 || orders.failed[0] != order.ID {
		t.Fatalf("order not marked failed: %v", orders.failed)
	}
	if emails.ownerNotices != 0 || emails.confirmations != 0 {
		t.Fatalf("emails sent for rejected payment")
	}
}

func TestVerifyTamperedReplayAfterConfirmation(t *testing.T) {
	t.Parallel()

	dedup, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() = %v", err)
	}
	orders := newFakeOrderStore()
	products := newFakeProductStore(moonstoneRing())
	emails := &recordingEmailSender{}
	service := NewCheckoutService(orders, products, &fakeGiftStore{}, &fakeGateway{}, "secret", dedup, emails, "INR", testLogger())

	order := storedPendingOrder()
	orders.add(order)

	signature := razorpay.ExpectedSignature("secret", "order_abc", "pay_1")
	if _, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: signature,
	}); err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	service.Wait()

	// Replaying the processed pair with a forged signature must still be
	// rejected, not short-circuited by the dedup entry.
	_, err = service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: strings.Repeat("0", 64),
	})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify() tampered replay = %v, want ErrInvalidSignature", err)
	}

	// The untampered replay stays an idempotent success.
	result, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: signature,
	})
	if err != nil || !result.AlreadyConfirmed {
		t.Fatalf("Verify() valid replay = %+v, %v, want AlreadyConfirmed", result, err)
	}
	service.Wait()

	if got := products.products["ring-moonstone"].StockQuantity; got != 8 {
		t.Fatalf("stock = %d, want a single decrement to 8", got)
	}
	if emails.ownerNotices != 1 || emails.confirmations != 1 {
		t.Fatalf("emails = %d owner, %d customer, want 1 each", emails.ownerNotices, emails.confirmations)
	}
}

func TestVerifyUnknownOrder(t *testing.T) {
	t.Parallel()

	service := newTestCheckout(newFakeOrderStore(), newFakeProductStore(), nil, &fakeGateway{}, nil)

	_, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_missing",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: strings.Repeat("0", 64),
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Verify() = %v, want ErrOrderNotFound", err)
	}
}

func TestVerifySendsLowStockAlert(t *testing.T) {
	t.Parallel()

	product := moonstoneRing()
	product.StockQuantity = 6
	orders := newFakeOrderStore()
	products := newFakeProductStore(product)
	emails := &recordingEmailSender{}
	service := newTestCheckout(orders, products, nil, &fakeGateway{}, emails)

	order := storedPendingOrder()
	orders.add(order)

	signature := razorpay.ExpectedSignature("secret", "order_abc", "pay_1")
	if _, err := service.Verify(context.Background(), VerifyPaymentRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: signature,
	}); err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	service.Wait()

	if len(emails.lowStock) != 1 || emails.lowStock[0] != "ring-moonstone" {
		t.Fatalf("low stock alerts = %v, want one for ring-moonstone", emails.lowStock)
	}
}
