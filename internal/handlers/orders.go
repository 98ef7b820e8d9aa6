package handlers

import (
	"net/http"

	"github.com/xivishop/xivi/internal/services"
)

// CreateOrder handles POST /api/orders/create. It validates the intake
// payload, opens a gateway order and returns everything the hosted checkout
// needs to collect payment.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result, err := h.checkoutService.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"orderId":     result.RazorpayOrderID,
		"amount":      result.AmountMinor,
		"currency":    result.Currency,
		"razorpayKey": result.RazorpayKey,
		"order": map[string]any{
			"id":     result.OrderID,
			"status": result.Status,
		},
	})
}

// VerifyPayment handles POST /api/orders/verify. Replayed confirmations for
// an already confirmed order succeed without repeating side effects.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req services.VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result, err := h.checkoutService.Verify(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	message := "Payment verified successfully"
	if result.AlreadyConfirmed {
		message = "Payment already verified"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"orderId": result.OrderID,
	})
}

// UpdateStatus handles POST /api/orders/update-status, an operator-only
// endpoint guarded by RequireOperator.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	order, err := h.statusService.Update(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Status updated and email queued",
		"order": map[string]any{
			"id":             order.ID,
			"status":         order.Status,
			"trackingId":     order.TrackingID,
			"trackingNumber": order.TrackingNumber,
		},
	})
}

// Cleanup handles POST /api/orders/cleanup, an operator-only endpoint that
// runs one retention pass immediately.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.cleanupService.Run(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Cleanup completed",
		"archived": result.Archived,
		"deleted":  result.Deleted,
		"cutoff":   result.Cutoff,
	})
}
