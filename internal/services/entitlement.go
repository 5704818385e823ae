package services

import (
	"context"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"go.uber.org/zap"
)

type SubscriptionRepo interface {
	GetActiveSubscription(ctx context.Context, userID int) (*models.Subscription, error)
	ReplaceActive(ctx context.Context, sub *models.Subscription) error
	ExpireSubscriptions(ctx context.Context) error
	HasActiveFundedBy(ctx context.Context, paymentID int) (bool, error)
}

// EntitlementService decides whether a user may ask for free or must pay.
type EntitlementService struct {
	subs SubscriptionRepo
}

func NewEntitlementService(subs SubscriptionRepo) *EntitlementService {
	return &EntitlementService{subs: subs}
}

// ActiveSubscription returns the user's current unexpired subscription, if
// any. A lookup fault degrades to "no subscription": denial is the safe
// default, the user can retry or pay per use.
func (s *EntitlementService) ActiveSubscription(ctx context.Context, userID int) (*models.Subscription, bool) {
	sub, err := s.subs.GetActiveSubscription(ctx, userID)
	if err != nil {
		logger.Log.Warn("entitlement lookup failed, treating as unentitled (service)",
			zap.Int("user_id", userID), zap.Error(err))
		return nil, false
	}
	if sub == nil {
		return nil, false
	}
	return sub, true
}

// Entitled reports whether the user holds an active monthly subscription.
func (s *EntitlementService) Entitled(ctx context.Context, userID int) bool {
	sub, ok := s.ActiveSubscription(ctx, userID)
	return ok && sub.PlanType == models.PlanMonthly
}
