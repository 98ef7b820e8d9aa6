package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/xivishop/xivi/internal/cache"
	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/logging"
	"github.com/xivishop/xivi/internal/models"
	"github.com/xivishop/xivi/internal/observability"
	"github.com/xivishop/xivi/internal/razorpay"
)

// lowStockThreshold triggers an owner alert when a decrement leaves fewer
// units than this in stock.
const lowStockThreshold = 5

// verificationTTL bounds how long a processed payment confirmation is
// remembered for replay suppression. The conditional status update remains
// the real idempotency guard.
const verificationTTL = 24 * time.Hour

type checkoutOrderStore interface {
	Create(ctx context.Context, order *db.Order) error
	GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*db.Order, error)
	MarkConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID) error
}

type checkoutProductStore interface {
	GetByID(ctx context.Context, productID string) (*db.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int) (int, error)
}

type checkoutGiftStore interface {
	GetByID(ctx context.Context, optionID string) (*db.GiftOption, error)
}

type paymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
}

// CheckoutService owns order intake and payment verification. A nil gateway
// means the storefront runs without payment credentials; checkout then fails
// with an explicit error instead of a broken redirect.
type CheckoutService struct {
	orders      checkoutOrderStore
	products    checkoutProductStore
	gifts       checkoutGiftStore
	gateway     paymentGateway
	keySecret   string
	dedup       cache.Provider
	emailSender OrderEmailSender
	currency    string
	logger      *slog.Logger
	now         func() time.Time
	sideEffects sync.WaitGroup
}

func NewCheckoutService(
	orders checkoutOrderStore,
	products checkoutProductStore,
	gifts checkoutGiftStore,
	gateway paymentGateway,
	keySecret string,
	dedup cache.Provider,
	emailSender OrderEmailSender,
	currency string,
	logger *slog.Logger,
) *CheckoutService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &CheckoutService{
		orders:      orders,
		products:    products,
		gifts:       gifts,
		gateway:     gateway,
		keySecret:   keySecret,
		dedup:       dedup,
		emailSender: emailSender,
		currency:    currency,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Wait blocks until all in-flight post-payment side effects finish. Called
// during shutdown so confirmation emails and stock updates are not dropped.
func (s *CheckoutService) Wait() {
	s.sideEffects.Wait()
}

type CreateOrderResult struct {
	OrderID         uuid.UUID
	RazorpayOrderID string
	AmountMinor     int64
	Currency        string
	RazorpayKey     string
	Status          db.OrderStatus
}

// Create validates the intake payload, prices it from the catalog, opens a
// gateway order and persists the pending order.
func (s *CheckoutService) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Create"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("order.create.received", 1)
	recordFailure := func(reason string) {
		meter.Count("order.create.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if err := req.Validate(); err != nil {
		recordFailure("validation")
		return nil, err
	}
	if s.gateway == nil {
		recordFailure("gateway_not_configured")
		return nil, fmt.Errorf("%w: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are not set", ErrGatewayUnavailable)
	}

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		recordFailure("pricing")
		return nil, err
	}

	var gift *models.GiftSelection
	if req.IsGift {
		gift, err = s.resolveGift(ctx, req.GiftOptionID, req.GiftCustomText)
		if err != nil {
			recordFailure("pricing")
			return nil, err
		}
		total += gift.Price
	}

	if total <= 0 {
		recordFailure("invalid_amount")
		return nil, ErrInvalidAmount
	}
	amountMinor := int64(math.Round(total * 100))

	receipt := fmt.Sprintf("xivi_%d", s.now().UnixMilli())
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amountMinor,
		Currency: s.currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"customer_name":  req.Customer.Name,
			"customer_email": req.Customer.Email,
		},
	})
	if err != nil {
		recordFailure("gateway")
		logger.Error("gateway order create failed", "receipt", receipt, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	order := &db.Order{
		RazorpayOrderID: gatewayOrder.ID,
		Amount:          total,
		AmountMinor:     amountMinor,
		Currency:        s.currency,
		Customer: models.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		ShippingAddress: models.Address{
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		Items:  items,
		Notes:  req.Notes,
		IsGift: gift != nil,
		Gift:   gift,
		Status: db.StatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// The gateway order stays open and expires on the gateway side. Log
		// its id so a paid-but-unrecorded dispute can be traced.
		recordFailure("persist")
		logger.Error("order persist failed after gateway order was opened",
			"razorpay_order_id", gatewayOrder.ID, "receipt", receipt, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	meter.Count("order.create.succeeded", 1)
	logger.Info("order created",
		"order_id", order.ID,
		"razorpay_order_id", gatewayOrder.ID,
		"amount", total,
		"items", len(items),
		"is_gift", order.IsGift,
	)

	return &CreateOrderResult{
		OrderID:         order.ID,
		RazorpayOrderID: gatewayOrder.ID,
		AmountMinor:     amountMinor,
		Currency:        s.currency,
		RazorpayKey:     s.gateway.KeyID(),
		Status:          order.Status,
	}, nil
}

// priceItems snapshots catalog name and price per line item and sums the
// request total. Client-supplied prices are ignored.
func (s *CheckoutService) priceItems(ctx context.Context, inputs []OrderItemInput) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	var total float64
	for i, input := range inputs {
		product, err := s.products.GetByID(ctx, input.ProductID)
		if errors.Is(err, db.ErrProductNotFound) {
			return nil, 0, newValidationError(fmt.Sprintf("items[%d].id", i), "unknown product")
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if !product.StockStatus || product.StockQuantity <= 0 {
			return nil, 0, newValidationError(fmt.Sprintf("items[%d].id", i), "product is out of stock")
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  input.Quantity,
			Image:     input.Image,
		})
		total += product.Price * float64(input.Quantity)
	}
	return items, total, nil
}

// resolveGift snapshots the catalog gift option. Client-supplied gift name
// and price are ignored the same way item prices are.
func (s *CheckoutService) resolveGift(ctx context.Context, optionID, customText string) (*models.GiftSelection, error) {
	option, err := s.gifts.GetByID(ctx, optionID)
	if errors.Is(err, db.ErrGiftOptionNotFound) {
		return nil, newValidationError("giftOptionId", "unknown gift option")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if !option.Active {
		return nil, newValidationError("giftOptionId", "gift option is no longer available")
	}

	return &models.GiftSelection{
		OptionID:   option.ID,
		Name:       option.Name,
		Price:      option.Price,
		CustomText: customText,
	}, nil
}

type VerifyPaymentResult struct {
	OrderID          uuid.UUID
	AlreadyConfirmed bool
}

// Verify checks the gateway signature and confirms the order exactly once.
// Replays of an already confirmed payment succeed without repeating stock
// updates or emails.
func (s *CheckoutService) Verify(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.verify",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Verify"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("order.verify.received", 1)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.keySecret == "" {
		return nil, fmt.Errorf("%w: RAZORPAY_KEY_SECRET is not set", ErrGatewayUnavailable)
	}

	order, err := s.orders.GetByRazorpayOrderID(ctx, req.RazorpayOrderID)
	if errors.Is(err, db.ErrOrderNotFound) {
		meter.Count("order.verify.unknown_order", 1)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if !razorpay.VerifySignature(s.keySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		meter.Count("order.verify.signature_mismatch", 1)
		logger.Warn("payment signature mismatch",
			"order_id", order.ID,
			"razorpay_order_id", req.RazorpayOrderID,
			"razorpay_payment_id", req.RazorpayPaymentID,
		)
		if err := s.orders.MarkFailed(ctx, order.ID); err != nil {
			logger.Error("failed to mark order as failed", "order_id", order.ID, "error", err)
		}
		return nil, ErrInvalidSignature
	}

	// The dedup lookup sits after the signature check so a replayed pair with
	// a forged signature can never ride an earlier confirmation to success.
	dedupKey := cache.VerificationKey(req.RazorpayOrderID, req.RazorpayPaymentID)
	if s.dedup != nil {
		if _, err := s.dedup.Get(ctx, dedupKey); err == nil {
			logger.Info("duplicate payment confirmation ignored", "order_id", order.ID)
			return &VerifyPaymentResult{OrderID: order.ID, AlreadyConfirmed: true}, nil
		}
	}

	confirmed, err := s.orders.MarkConfirmed(ctx, order.ID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if !confirmed {
		logger.Info("order already confirmed, skipping side effects", "order_id", order.ID)
		return &VerifyPaymentResult{OrderID: order.ID, AlreadyConfirmed: true}, nil
	}

	if s.dedup != nil {
		if err := s.dedup.Set(ctx, dedupKey, "confirmed", verificationTTL); err != nil {
			logger.Warn("failed to record verification in cache", "order_id", order.ID, "error", err)
		}
	}

	meter.Count("order.verify.confirmed", 1)
	logger.Info("payment verified", "order_id", order.ID, "razorpay_payment_id", req.RazorpayPaymentID)

	order.Status = db.StatusConfirmed
	order.RazorpayPaymentID = req.RazorpayPaymentID
	order.RazorpaySignature = req.RazorpaySignature

	s.sideEffects.Add(1)
	go s.settleConfirmedOrder(context.WithoutCancel(ctx), order)

	return &VerifyPaymentResult{OrderID: order.ID}, nil
}

// settleConfirmedOrder reconciles stock and sends the confirmation emails.
// It runs detached from the request; failures are logged, never surfaced to
// the customer whose payment already succeeded.
func (s *CheckoutService) settleConfirmedOrder(ctx context.Context, order *db.Order) {
	defer s.sideEffects.Done()
	logger := s.loggerFromContext(ctx)

	for _, item := range order.Items {
		remaining, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			if errors.Is(err, db.ErrProductNotFound) {
				logger.Warn("skipping stock decrement for unknown product",
					"order_id", order.ID, "product_id", item.ProductID)
			} else {
				logger.Error("stock decrement failed",
					"order_id", order.ID, "product_id", item.ProductID, "error", err)
			}
			continue
		}
		if remaining < lowStockThreshold {
			if err := s.emailSender.SendLowStockAlert(ctx, item.ProductID, item.Name, remaining); err != nil {
				logger.Warn("failed to send low stock alert",
					"product_id", item.ProductID, "error", err)
			}
		}
	}

	if err := s.emailSender.SendOwnerOrderNotice(ctx, order); err != nil {
		logger.Warn("failed to send owner order notice", "order_id", order.ID, "error", err)
	}
	if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
		logger.Warn("failed to send order confirmation", "order_id", order.ID, "error", err)
	}
}
