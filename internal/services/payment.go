package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"go.uber.org/zap"
)

// ErrPaymentInitiation means the gateway took the call but answered with a
// non-success code; the payment row is marked failed and nothing was pushed.
var ErrPaymentInitiation = errors.New("payment initiation failed")

// ErrPaymentNotFound is returned when a payment does not exist or belongs to
// another user.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentPurpose tags what a payment is buying; it selects the account
// reference prefix so the callback can tell question payments from
// subscription purchases.
type PaymentPurpose string

const (
	PurposeQuestion     PaymentPurpose = "question"
	PurposeSubscription PaymentPurpose = "subscription"
)

type PaymentRepo interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SetAccountReference(ctx context.Context, paymentID int, reference string) error
	SetGatewayRequestIDs(ctx context.Context, paymentID int, merchantRequestID, checkoutRequestID string) error
	MarkFailed(ctx context.Context, paymentID int) error
	CompleteByCheckoutID(ctx context.Context, checkoutRequestID, receipt string) (*models.Payment, error)
	FailByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	GetPaymentByID(ctx context.Context, id int) (*models.Payment, error)
	GetUserPayments(ctx context.Context, userID, limit int) ([]*models.Payment, error)
}

type Gateway interface {
	STKPush(ctx context.Context, phone string, amount float64, reference, description string) (*STKPushResponse, error)
}

// PaymentService drives a payment from creation through the gateway push to
// reconciliation via the asynchronous callback.
type PaymentService struct {
	payments PaymentRepo
	subs     SubscriptionRepo
	gateway  Gateway
	now      func() time.Time
}

func NewPaymentService(payments PaymentRepo, subs SubscriptionRepo, gateway Gateway) *PaymentService {
	return &PaymentService{
		payments: payments,
		subs:     subs,
		gateway:  gateway,
		now:      time.Now,
	}
}

// Initiate creates a pending payment and pushes the prompt to the user's
// phone. A returned id only means the prompt was dispatched: the caller must
// not treat it as money received and must not unlock anything yet.
func (s *PaymentService) Initiate(ctx context.Context, userID int, amount float64, phone string, purpose PaymentPurpose, description string) (int, error) {
	logger.Log.Info("initiating payment (service)",
		zap.Int("user_id", userID), zap.Float64("amount", amount), zap.String("purpose", string(purpose)))

	payment := &models.Payment{
		UserID:      userID,
		Amount:      amount,
		PhoneNumber: phone,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return 0, fmt.Errorf("create payment: %w", err)
	}

	reference := referenceFor(purpose, payment.ID)
	if err := s.payments.SetAccountReference(ctx, payment.ID, reference); err != nil {
		return 0, fmt.Errorf("set account reference: %w", err)
	}

	resp, err := s.gateway.STKPush(ctx, phone, amount, reference, description)
	if err != nil {
		logger.Log.Error("gateway push failed (service)",
			zap.Int("payment_id", payment.ID), zap.Error(err))
		_ = s.payments.MarkFailed(ctx, payment.ID)
		return 0, err
	}

	if !resp.Dispatched() {
		logger.Log.Warn("gateway declined push (service)",
			zap.Int("payment_id", payment.ID),
			zap.String("response_code", resp.ResponseCode),
			zap.String("response_description", resp.ResponseDescription))
		_ = s.payments.MarkFailed(ctx, payment.ID)
		return 0, ErrPaymentInitiation
	}

	if err := s.payments.SetGatewayRequestIDs(ctx, payment.ID, resp.MerchantRequestID, resp.CheckoutRequestID); err != nil {
		// Without the correlation ids the callback can never complete this
		// row, so surface the fault instead of reporting a pending payment.
		return 0, fmt.Errorf("store gateway request ids: %w", err)
	}

	logger.Log.Info("payment pending confirmation (service)",
		zap.Int("payment_id", payment.ID), zap.String("reference", reference))
	return payment.ID, nil
}

// Reconcile applies the gateway's asynchronous result to the correlated
// payment. Safe to call more than once for the same callback: the status
// guard in the repository makes a second delivery a no-op, and subscription
// activation is keyed on the funding payment.
func (s *PaymentService) Reconcile(ctx context.Context, cb *STKCallback) error {
	if cb.CheckoutRequestID == "" {
		logger.Log.Warn("callback without checkout request id, ignoring (service)",
			zap.String("merchant_request_id", cb.MerchantRequestID))
		return nil
	}

	if !cb.Succeeded() {
		payment, err := s.payments.FailByCheckoutID(ctx, cb.CheckoutRequestID)
		if err != nil {
			return fmt.Errorf("fail payment: %w", err)
		}
		if payment == nil {
			logger.Log.Info("callback for unknown or settled payment, no-op (service)",
				zap.String("checkout_request_id", cb.CheckoutRequestID))
			return nil
		}
		logger.Log.Info("payment failed via callback (service)",
			zap.Int("payment_id", payment.ID),
			zap.Int("result_code", cb.ResultCode),
			zap.String("result_desc", cb.ResultDesc))
		return nil
	}

	payment, err := s.payments.CompleteByCheckoutID(ctx, cb.CheckoutRequestID, cb.ReceiptNumber())
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	if payment == nil {
		logger.Log.Info("callback for unknown or settled payment, no-op (service)",
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return nil
	}

	logger.Log.Info("payment completed via callback (service)",
		zap.Int("payment_id", payment.ID), zap.String("receipt", cb.ReceiptNumber()))

	if strings.HasPrefix(payment.AccountReference, models.RefPrefixSubscription) {
		return s.activateSubscription(ctx, payment)
	}
	return nil
}

func (s *PaymentService) activateSubscription(ctx context.Context, payment *models.Payment) error {
	funded, err := s.subs.HasActiveFundedBy(ctx, payment.ID)
	if err != nil {
		return fmt.Errorf("check funding payment: %w", err)
	}
	if funded {
		logger.Log.Info("subscription already funded by payment, no-op (service)",
			zap.Int("payment_id", payment.ID))
		return nil
	}

	start := s.now()
	end := start.Add(models.MonthlyPlanDuration)
	sub := &models.Subscription{
		UserID:    payment.UserID,
		PlanType:  models.PlanMonthly,
		StartDate: start,
		EndDate:   &end,
		PaymentID: &payment.ID,
	}
	if err := s.subs.ReplaceActive(ctx, sub); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	logger.Log.Info("subscription activated (service)",
		zap.Int("user_id", payment.UserID),
		zap.Int("subscription_id", sub.ID),
		zap.Time("end_date", end))
	return nil
}

// PaymentForUser fetches a payment and enforces ownership.
func (s *PaymentService) PaymentForUser(ctx context.Context, userID, paymentID int) (*models.Payment, error) {
	payment, err := s.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, ErrPaymentNotFound
	}
	if payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) History(ctx context.Context, userID, limit int) ([]*models.Payment, error) {
	return s.payments.GetUserPayments(ctx, userID, limit)
}

func referenceFor(purpose PaymentPurpose, paymentID int) string {
	prefix := models.RefPrefixQuestion
	if purpose == PurposeSubscription {
		prefix = models.RefPrefixSubscription
	}
	return prefix + strconv.Itoa(paymentID)
}
