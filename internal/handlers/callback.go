package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/services"

	"go.uber.org/zap"
)

// PaymentReconciler reconciles a gateway callback to a payment row.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, cb *services.STKCallback) error
}

type CallbackHandler struct {
	payments PaymentReconciler
}

func NewCallbackHandler(payments PaymentReconciler) *CallbackHandler {
	return &CallbackHandler{payments: payments}
}

// callbackAck is the acknowledgement format the gateway expects, not the
// usual response envelope.
type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// HandleCallback godoc
// @Summary M-Pesa payment result callback
// @Description Always acknowledges a parseable payload, even when internal
// @Description processing fails, so the gateway stops redelivering.
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} callbackAck
// @Failure 400 {object} callbackAck "Unparseable payload"
// @Router /api/payments/callback [post]
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var payload services.STKCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WithCtx(r.Context()).Error("unparseable payment callback", zap.Error(err))
		writeAck(w, http.StatusBadRequest, callbackAck{ResultCode: 1, ResultDesc: "Failed"})
		return
	}

	cb := payload.Body.StkCallback
	logger.WithCtx(r.Context()).Info("payment callback received",
		zap.String("merchant_request_id", cb.MerchantRequestID),
		zap.String("checkout_request_id", cb.CheckoutRequestID),
		zap.Int("result_code", cb.ResultCode))

	if err := h.payments.Reconcile(r.Context(), &cb); err != nil {
		// Logged but still acknowledged: a redelivery would hit the same
		// fault, and the gateway only needs to know we received the result.
		logger.WithCtx(r.Context()).Error("callback reconciliation failed",
			zap.String("checkout_request_id", cb.CheckoutRequestID), zap.Error(err))
	}

	writeAck(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func writeAck(w http.ResponseWriter, status int, ack callbackAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ack)
}
