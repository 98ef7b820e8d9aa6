package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/logging"
	"github.com/xivishop/xivi/internal/observability"
)

// DefaultRetention is how long delivered and abandoned orders stay in the
// live database before they are archived and removed.
const DefaultRetention = 30 * 24 * time.Hour

type cleanupOrderStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*db.Order, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService archives orders past the retention window to a CSV report
// mailed to the owner, then deletes them. Deletion only happens after the
// report is delivered; a failed email keeps every order in place.
type CleanupService struct {
	orders      cleanupOrderStore
	emailSender OrderEmailSender
	retention   time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewCleanupService(orders cleanupOrderStore, emailSender OrderEmailSender, retention time.Duration, logger *slog.Logger) *CleanupService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &CleanupService{
		orders:      orders,
		emailSender: emailSender,
		retention:   retention,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *CleanupService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CleanupResult struct {
	Archived int
	Deleted  int64
	Cutoff   time.Time
}

// Run performs one archive-and-delete pass.
func (s *CleanupService) Run(ctx context.Context) (*CleanupResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.cleanup.run",
		sentry.WithOpName("service.cleanup"),
		sentry.WithDescription("Run"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	cutoff := s.now().Add(-s.retention)
	orders, err := s.orders.ListOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if len(orders) == 0 {
		logger.Info("no orders past retention window", "cutoff", cutoff)
		return &CleanupResult{Cutoff: cutoff}, nil
	}

	report, err := buildArchiveReport(orders)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive report: %w", err)
	}

	monthYear := s.now().Format("January 2006")
	if err := s.emailSender.SendArchiveReport(ctx, monthYear, report); err != nil {
		meter.Count("order.cleanup.report_failed", 1)
		return nil, fmt.Errorf("archive report not delivered, keeping orders: %w", err)
	}

	deleted, err := s.orders.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	meter.Count("order.cleanup.deleted", deleted)
	logger.Info("order retention cleanup finished",
		"archived", len(orders),
		"deleted", deleted,
		"cutoff", cutoff,
	)

	return &CleanupResult{
		Archived: len(orders),
		Deleted:  deleted,
		Cutoff:   cutoff,
	}, nil
}

// buildArchiveReport renders the archived orders as CSV, one row per order
// with line items flattened into a single column.
func buildArchiveReport(orders []*db.Order) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Order ID", "Customer Name", "Email", "Phone", "Status", "Total Price", "Date", "Tracking", "Products"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, order := range orders {
		products := make([]string, 0, len(order.Items))
		for _, item := range order.Items {
			products = append(products, fmt.Sprintf("%s(%d)", item.Name, item.Quantity))
		}
		tracking := order.TrackingID
		if tracking == "" {
			tracking = order.TrackingNumber
		}

		row := []string{
			order.ID.String(),
			order.Customer.Name,
			order.Customer.Email,
			order.Customer.Phone,
			string(order.Status),
			strconv.FormatFloat(order.Amount, 'f', 2, 64),
			order.CreatedAt.Format("2006-01-02"),
			tracking,
			strings.Join(products, "; "),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
