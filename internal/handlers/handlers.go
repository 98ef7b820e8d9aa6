package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xivishop/xivi/internal/config"
	"github.com/xivishop/xivi/internal/logging"
	"github.com/xivishop/xivi/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the HTTP surface of the storefront order API.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	checkoutService *services.CheckoutService
	statusService   *services.StatusService
	cleanupService  *services.CleanupService
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CheckoutService *services.CheckoutService
	StatusService   *services.StatusService
	CleanupService  *services.CleanupService
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.StatusService == nil {
		return nil, fmt.Errorf("handlers dependencies: statusService is required")
	}
	if deps.CleanupService == nil {
		return nil, fmt.Errorf("handlers dependencies: cleanupService is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		checkoutService: deps.CheckoutService,
		statusService:   deps.StatusService,
		cleanupService:  deps.CleanupService,
		logger:          logger,
	}, nil
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

// Health reports process liveness and database reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.loggerFromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string, fields []services.FieldError) {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown shapes
// with a client error instead of a panic further down.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFromContext(r.Context())

	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeErrorJSON(w, http.StatusBadRequest, "Validation failed", validationErr.Fields)
	case errors.Is(err, services.ErrInvalidAmount):
		writeErrorJSON(w, http.StatusBadRequest, "Order amount must be greater than zero", nil)
	case errors.Is(err, services.ErrInvalidSignature):
		writeErrorJSON(w, http.StatusBadRequest, "Payment verification failed", nil)
	case errors.Is(err, services.ErrOrderNotFound):
		writeErrorJSON(w, http.StatusNotFound, "Order not found", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		writeErrorJSON(w, http.StatusConflict, "Invalid status transition", nil)
	case errors.Is(err, services.ErrGatewayUnavailable):
		logger.Error("payment gateway unavailable", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "Payment gateway is unavailable", nil)
	case errors.Is(err, services.ErrDatabase):
		logger.Error("database error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "Something went wrong, please try again", nil)
	default:
		logger.Error("unhandled service error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "Something went wrong, please try again", nil)
	}
}
