package repository

import (
	"context"
	"errors"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetActiveSubscription returns the user's current subscription: active rows
// with an end date still in the future, latest end date first. Returns
// (nil, nil) when there is none.
func (r *SubscriptionRepository) GetActiveSubscription(ctx context.Context, userID int) (*models.Subscription, error) {
	logger.Log.Debug("fetching active subscription (repo)", zap.Int("user_id", userID))
	query := `
	SELECT id, user_id, plan_type, start_date, end_date, is_active, payment_id
	FROM subscriptions
	WHERE user_id = $1 AND is_active = TRUE AND end_date > now()
	ORDER BY end_date DESC
	LIMIT 1`

	var sub models.Subscription
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanType,
		&sub.StartDate,
		&sub.EndDate,
		&sub.IsActive,
		&sub.PaymentID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Error("fetching active subscription failed (repo)", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &sub, nil
}

// ReplaceActive deactivates all of the user's active subscriptions and
// inserts the new one in a single transaction, so there is never more than
// one active row per user and a failed insert rolls the deactivation back.
func (r *SubscriptionRepository) ReplaceActive(ctx context.Context, sub *models.Subscription) error {
	logger.Log.Info("replacing active subscription (repo)",
		zap.Int("user_id", sub.UserID), zap.String("plan_type", sub.PlanType))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		logger.Log.Error("beginning subscription tx failed (repo)", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE subscriptions SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE`,
		sub.UserID,
	); err != nil {
		logger.Log.Error("deactivating subscriptions failed (repo)", zap.Int("user_id", sub.UserID), zap.Error(err))
		return err
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, plan_type, start_date, end_date, is_active, payment_id)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id`,
		sub.UserID,
		sub.PlanType,
		sub.StartDate,
		sub.EndDate,
		sub.PaymentID,
	).Scan(&sub.ID); err != nil {
		logger.Log.Error("inserting subscription failed (repo)", zap.Int("user_id", sub.UserID), zap.Error(err))
		return err
	}
	sub.IsActive = true

	if err := tx.Commit(ctx); err != nil {
		logger.Log.Error("committing subscription tx failed (repo)", zap.Error(err))
		return err
	}
	return nil
}

// ExpireSubscriptions deactivates subscriptions whose end date has passed.
func (r *SubscriptionRepository) ExpireSubscriptions(ctx context.Context) error {
	query := `
	UPDATE subscriptions SET is_active = FALSE
	WHERE is_active = TRUE AND end_date IS NOT NULL AND end_date < now()`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		logger.Log.Error("expiring subscriptions failed (repo)", zap.Error(err))
		return err
	}
	if tag.RowsAffected() > 0 {
		logger.Log.Info("subscriptions expired (repo)", zap.Int64("count", tag.RowsAffected()))
	}
	return nil
}

// HasActiveFundedBy reports whether an active subscription already references
// the given payment. Guards subscription activation against duplicate callbacks.
func (r *SubscriptionRepository) HasActiveFundedBy(ctx context.Context, paymentID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE payment_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, paymentID).Scan(&exists)
	if err != nil {
		logger.Log.Error("checking funding payment failed (repo)", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return exists, err
}
