package repository

import (
	"context"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePayment inserts a new payment in the pending state.
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	logger.Log.Info("creating payment (repo)",
		zap.Int("user_id", payment.UserID), zap.Float64("amount", payment.Amount))
	query := `
	INSERT INTO payments (user_id, amount, phone_number, status)
	VALUES ($1, $2, $3, 'pending')
	RETURNING id, status, transaction_date`
	err := r.db.QueryRow(ctx, query,
		payment.UserID,
		payment.Amount,
		payment.PhoneNumber,
	).Scan(&payment.ID, &payment.Status, &payment.TransactionDate)
	if err != nil {
		logger.Log.Error("creating payment failed (repo)", zap.Error(err))
	}
	return err
}

// SetAccountReference stores the purpose-tagged reference built from the row id.
func (r *PaymentRepository) SetAccountReference(ctx context.Context, paymentID int, reference string) error {
	query := `UPDATE payments SET account_reference = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, reference, paymentID)
	if err != nil {
		logger.Log.Error("setting account reference failed (repo)", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return err
}

// SetGatewayRequestIDs captures the gateway correlation ids returned by the
// STK push so the asynchronous callback can be matched back to this row.
func (r *PaymentRepository) SetGatewayRequestIDs(ctx context.Context, paymentID int, merchantRequestID, checkoutRequestID string) error {
	logger.Log.Debug("storing gateway request ids (repo)",
		zap.Int("payment_id", paymentID), zap.String("checkout_request_id", checkoutRequestID))
	query := `UPDATE payments SET merchant_request_id = $1, checkout_request_id = $2 WHERE id = $3`
	_, err := r.db.Exec(ctx, query, merchantRequestID, checkoutRequestID, paymentID)
	if err != nil {
		logger.Log.Error("storing gateway request ids failed (repo)", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return err
}

// MarkFailed moves a still-pending payment to failed. A no-op for terminal rows.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID int) error {
	logger.Log.Info("marking payment failed (repo)", zap.Int("payment_id", paymentID))
	query := `UPDATE payments SET status = 'failed', transaction_date = now()
	WHERE id = $1 AND status = 'pending'`
	_, err := r.db.Exec(ctx, query, paymentID)
	if err != nil {
		logger.Log.Error("marking payment failed errored (repo)", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return err
}

// CompleteByCheckoutID completes the pending payment correlated to the given
// CheckoutRequestID and records the receipt. The status guard makes duplicate
// callback deliveries a no-op: the second call finds no pending row and
// returns (nil, nil).
func (r *PaymentRepository) CompleteByCheckoutID(ctx context.Context, checkoutRequestID, receipt string) (*models.Payment, error) {
	logger.Log.Info("completing payment (repo)", zap.String("checkout_request_id", checkoutRequestID))
	query := `
	UPDATE payments
	SET status = 'completed', mpesa_receipt = $2, transaction_date = now()
	WHERE checkout_request_id = $1 AND status = 'pending'
	RETURNING id, user_id, amount, phone_number, account_reference,
		merchant_request_id, checkout_request_id, mpesa_receipt, status, transaction_date`
	return r.scanUpdated(ctx, query, checkoutRequestID, receipt)
}

// FailByCheckoutID fails the pending payment correlated to the given
// CheckoutRequestID. Same idempotency contract as CompleteByCheckoutID.
func (r *PaymentRepository) FailByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	logger.Log.Info("failing payment (repo)", zap.String("checkout_request_id", checkoutRequestID))
	query := `
	UPDATE payments
	SET status = 'failed', transaction_date = now()
	WHERE checkout_request_id = $1 AND status = 'pending'
	RETURNING id, user_id, amount, phone_number, account_reference,
		merchant_request_id, checkout_request_id, mpesa_receipt, status, transaction_date`
	return r.scanUpdated(ctx, query, checkoutRequestID)
}

func (r *PaymentRepository) scanUpdated(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Log.Error("payment status update failed (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var p models.Payment
	if err := rows.Scan(
		&p.ID,
		&p.UserID,
		&p.Amount,
		&p.PhoneNumber,
		&p.AccountReference,
		&p.MerchantRequestID,
		&p.CheckoutRequestID,
		&p.MpesaReceipt,
		&p.Status,
		&p.TransactionDate,
	); err != nil {
		logger.Log.Error("scanning updated payment failed (repo)", zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id int) (*models.Payment, error) {
	logger.Log.Debug("fetching payment by id (repo)", zap.Int("payment_id", id))
	query := `
	SELECT id, user_id, amount, phone_number, account_reference,
		merchant_request_id, checkout_request_id, mpesa_receipt, status, transaction_date
	FROM payments
	WHERE id = $1`

	var p models.Payment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.UserID,
		&p.Amount,
		&p.PhoneNumber,
		&p.AccountReference,
		&p.MerchantRequestID,
		&p.CheckoutRequestID,
		&p.MpesaReceipt,
		&p.Status,
		&p.TransactionDate,
	)
	if err != nil {
		logger.Log.Error("fetching payment by id failed (repo)", zap.Int("payment_id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetUserPayments(ctx context.Context, userID, limit int) ([]*models.Payment, error) {
	query := `
	SELECT id, user_id, amount, phone_number, account_reference,
		merchant_request_id, checkout_request_id, mpesa_receipt, status, transaction_date
	FROM payments
	WHERE user_id = $1
	ORDER BY transaction_date DESC
	LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		logger.Log.Error("listing payments failed (repo)", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Amount,
			&p.PhoneNumber,
			&p.AccountReference,
			&p.MerchantRequestID,
			&p.CheckoutRequestID,
			&p.MpesaReceipt,
			&p.Status,
			&p.TransactionDate,
		); err != nil {
			logger.Log.Error("scanning payment failed (repo)", zap.Error(err))
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
