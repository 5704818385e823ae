package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Account reference prefixes distinguish what an STK push was paying for.
const (
	RefPrefixQuestion     = "HW"
	RefPrefixSubscription = "SUB"
)

type Payment struct {
	ID                int       `json:"id"`
	UserID            int       `json:"user_id"`
	Amount            float64   `json:"amount"`
	PhoneNumber       string    `json:"phone_number"`
	AccountReference  string    `json:"account_reference"`
	MerchantRequestID *string   `json:"merchant_request_id,omitempty"`
	CheckoutRequestID *string   `json:"checkout_request_id,omitempty"`
	MpesaReceipt      *string   `json:"mpesa_receipt,omitempty"`
	Status            string    `json:"status"`
	TransactionDate   time.Time `json:"transaction_date"`
}

// Terminal reports whether the payment has reached a final state.
// Terminal payments never transition again.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}
