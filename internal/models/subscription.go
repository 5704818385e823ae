package models

import "time"

const (
	PlanPayPerUse = "pay_per_use"
	PlanMonthly   = "monthly"
)

// MonthlyPlanDuration is how long a monthly subscription stays valid after purchase.
const MonthlyPlanDuration = 30 * 24 * time.Hour

type Subscription struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	PlanType  string     `json:"plan_type"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  bool       `json:"is_active"`
	PaymentID *int       `json:"payment_id,omitempty"`
}
