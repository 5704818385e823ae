package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeworkhelper/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestActiveSubscription_MonthlyPlan(t *testing.T) {
	end := time.Now().Add(10 * 24 * time.Hour)
	subs := &mockSubscriptionRepo{active: &models.Subscription{
		ID:       1,
		UserID:   7,
		PlanType: models.PlanMonthly,
		EndDate:  &end,
		IsActive: true,
	}}
	s := NewEntitlementService(subs)

	sub, ok := s.ActiveSubscription(context.Background(), 7)
	assert.True(t, ok)
	assert.Equal(t, models.PlanMonthly, sub.PlanType)
	assert.True(t, s.Entitled(context.Background(), 7))
}

func TestActiveSubscription_None(t *testing.T) {
	s := NewEntitlementService(&mockSubscriptionRepo{})

	sub, ok := s.ActiveSubscription(context.Background(), 7)
	assert.False(t, ok)
	assert.Nil(t, sub)
	assert.False(t, s.Entitled(context.Background(), 7))
}

func TestActiveSubscription_LookupFaultDegradesToUnentitled(t *testing.T) {
	subs := &mockSubscriptionRepo{activeErr: errors.New("connection refused")}
	s := NewEntitlementService(subs)

	_, ok := s.ActiveSubscription(context.Background(), 7)
	assert.False(t, ok, "a lookup fault must deny, not propagate")
}
