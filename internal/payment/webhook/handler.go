package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tokosnap-be/internal/logger"
	"tokosnap-be/internal/metrics"
	"tokosnap-be/internal/order"
	"tokosnap-be/internal/payment"

	"go.uber.org/zap"
)

// Handler receives Midtrans server-to-server notifications. The gateway
// retries anything that is not a 2xx, so every benign outcome acknowledges
// with 200; only store trouble earns a 5xx and a redelivery.
type Handler struct {
	orders  order.Service
	gateway payment.Gateway
	metrics *metrics.PaymentMetrics
}

func NewHandler(orders order.Service, gateway payment.Gateway, m *metrics.PaymentMetrics) *Handler {
	return &Handler{orders: orders, gateway: gateway, metrics: m}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.RecordWebhookOutcome(metrics.OutcomeInvalidPayload)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	var n payment.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Warn("unparseable notification body", zap.Error(err))
		h.metrics.RecordWebhookOutcome(metrics.OutcomeInvalidPayload)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}
	n.Raw = body

	if err := h.gateway.VerifySignature(&n); err != nil {
		log.Warn("notification signature rejected",
			zap.String("order_id", n.OrderID),
			zap.String("transaction_status", n.TransactionStatus),
		)
		h.metrics.RecordWebhookOutcome(metrics.OutcomeInvalidSignature)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	_, err = h.orders.ReconcileNotification(r.Context(), &n)
	switch {
	case errors.Is(err, order.ErrInvalidNotification):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing order id"})
	case errors.Is(err, order.ErrOrderNotFound):
		// benign under redelivery; acknowledged so the gateway stops retrying
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Webhook handling failed"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
