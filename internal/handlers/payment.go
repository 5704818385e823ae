package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/middleware"
	"homeworkhelper/internal/models"
	"homeworkhelper/internal/services"
	"homeworkhelper/internal/utils/helpers"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	authService    *services.AuthService
	monthlyPrice   float64
}

func NewPaymentHandler(paymentService *services.PaymentService, authService *services.AuthService, monthlyPrice float64) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		authService:    authService,
		monthlyPrice:   monthlyPrice,
	}
}

type subscribeRequest struct {
	Plan string `json:"plan"`
}

type pendingPaymentResponse struct {
	PaymentID int    `json:"payment_id"`
	Status    string `json:"status"`
}

// Subscribe godoc
// @Summary Buy a monthly subscription
// @Description Initiates an M-Pesa push for the plan price; the subscription
// @Description activates only when the payment callback confirms it.
// @Tags payments
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body subscribeRequest true "Plan (monthly)"
// @Success 202 {object} pendingPaymentResponse
// @Failure 400 {string} string "Invalid plan"
// @Failure 502 {string} string "Payment service unavailable"
// @Router /api/subscriptions [post]
func (h *PaymentHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Plan != models.PlanMonthly {
		helpers.Error(w, http.StatusBadRequest, "invalid plan")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		helpers.Error(w, http.StatusNotFound, "user not found")
		return
	}

	paymentID, err := h.paymentService.Initiate(
		r.Context(), userID, h.monthlyPrice, user.Phone,
		services.PurposeSubscription, "Monthly Subscription",
	)
	if err != nil {
		if errors.Is(err, services.ErrGatewayAuth) ||
			errors.Is(err, services.ErrGatewayRequest) ||
			errors.Is(err, services.ErrPaymentInitiation) {
			logger.WithCtx(r.Context()).Error("subscription payment failed", zap.Error(err))
			helpers.Error(w, http.StatusBadGateway, "payment service unavailable")
			return
		}
		logger.WithCtx(r.Context()).Error("subscription initiation failed", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	helpers.JSON(w, http.StatusAccepted, pendingPaymentResponse{
		PaymentID: paymentID,
		Status:    models.PaymentStatusPending,
	})
}

// GetPayment godoc
// @Summary Payment status poll
// @Tags payments
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Payment id"
// @Success 200 {object} models.Payment
// @Failure 404 {string} string "Not found"
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	payment, err := h.paymentService.PaymentForUser(r.Context(), userID, id)
	if err != nil {
		helpers.Error(w, http.StatusNotFound, "payment not found")
		return
	}
	helpers.JSON(w, http.StatusOK, payment)
}

// History godoc
// @Summary Recent payments of the current user
// @Tags payments
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Max rows (default 10)"
// @Success 200 {array} models.Payment
// @Router /api/payments [get]
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	payments, err := h.paymentService.History(r.Context(), userID, limit)
	if err != nil {
		logger.WithCtx(r.Context()).Error("payment history failed", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	helpers.JSON(w, http.StatusOK, payments)
}
