package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/logging"
	"github.com/xivishop/xivi/internal/models"
	"github.com/xivishop/xivi/internal/observability"
)

type statusOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, next db.OrderStatus, trackingID, trackingNumber string, allowedFrom []db.OrderStatus) error
}

// StatusService moves orders along the forward-only delivery sequence and
// notifies customers about each move.
type StatusService struct {
	orders      statusOrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
	sideEffects sync.WaitGroup
}

func NewStatusService(orders statusOrderStore, emailSender OrderEmailSender, logger *slog.Logger) *StatusService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &StatusService{
		orders:      orders,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *StatusService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Wait blocks until in-flight status notification emails finish.
func (s *StatusService) Wait() {
	s.sideEffects.Wait()
}

// Update transitions an order to the requested status. Backward moves,
// re-entries and moves out of terminal states are rejected. The customer
// notification is sent after the transition commits and never blocks it.
func (s *StatusService) Update(ctx context.Context, req UpdateStatusRequest) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.status.update",
		sentry.WithOpName("service.status"),
		sentry.WithDescription("Update"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	next := db.OrderStatus(req.Status)
	if !models.IsValidStatus(next) {
		return nil, newValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, newValidationError("orderId", "must be a valid order id")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if !models.CanTransition(order.Status, next) {
		meter.Count("order.status.rejected", 1)
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
	}

	// The allowed-from set re-checks the transition inside the UPDATE, so a
	// concurrent update that already moved the order past next loses cleanly.
	if err := s.orders.Transition(ctx, orderID, next, req.TrackingID, req.TrackingNumber, allowedSources(next)); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			meter.Count("order.status.rejected", 1)
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	meter.Count("order.status.updated", 1)
	logger.Info("order status updated",
		"order_id", orderID,
		"from", order.Status,
		"to", next,
		"tracking_id", req.TrackingID,
	)

	order.Status = next
	if req.TrackingID != "" {
		order.TrackingID = req.TrackingID
	}
	if req.TrackingNumber != "" {
		order.TrackingNumber = req.TrackingNumber
	}

	s.sideEffects.Add(1)
	go func(ctx context.Context) {
		defer s.sideEffects.Done()
		if err := s.emailSender.SendStatusUpdate(ctx, order, next); err != nil {
			s.loggerFromContext(ctx).Warn("failed to send status update email",
				"order_id", order.ID, "status", next, "error", err)
		}
	}(context.WithoutCancel(ctx))

	return order, nil
}

// allowedSources lists every status an order may hold and still legally move
// to next.
func allowedSources(next db.OrderStatus) []db.OrderStatus {
	all := []db.OrderStatus{
		db.StatusPending,
		db.StatusConfirmed,
		db.StatusShipped,
		db.StatusOutForDelivery,
		db.StatusFailed,
	}
	var sources []db.OrderStatus
	for _, current := range all {
		if models.CanTransition(current, next) {
			sources = append(sources, current)
		}
	}
	return sources
}
