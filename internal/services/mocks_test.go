package services

import (
	"context"
	"errors"
	"time"

	"homeworkhelper/internal/models"
)

// In-memory payment repo with the same conditional-update semantics as the
// SQL implementation.
type mockPaymentRepo struct {
	payments map[int]*models.Payment
	nextID   int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[int]*models.Payment)}
}

func (m *mockPaymentRepo) CreatePayment(_ context.Context, p *models.Payment) error {
	m.nextID++
	p.ID = m.nextID
	p.Status = models.PaymentStatusPending
	p.TransactionDate = time.Now()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) SetAccountReference(_ context.Context, paymentID int, reference string) error {
	p, ok := m.payments[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	p.AccountReference = reference
	return nil
}

func (m *mockPaymentRepo) SetGatewayRequestIDs(_ context.Context, paymentID int, merchantRequestID, checkoutRequestID string) error {
	p, ok := m.payments[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	p.MerchantRequestID = &merchantRequestID
	p.CheckoutRequestID = &checkoutRequestID
	return nil
}

func (m *mockPaymentRepo) MarkFailed(_ context.Context, paymentID int) error {
	p, ok := m.payments[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	if p.Status == models.PaymentStatusPending {
		p.Status = models.PaymentStatusFailed
	}
	return nil
}

func (m *mockPaymentRepo) CompleteByCheckoutID(_ context.Context, checkoutRequestID, receipt string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.CheckoutRequestID != nil && *p.CheckoutRequestID == checkoutRequestID && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusCompleted
			p.MpesaReceipt = &receipt
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) FailByCheckoutID(_ context.Context, checkoutRequestID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.CheckoutRequestID != nil && *p.CheckoutRequestID == checkoutRequestID && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusFailed
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) GetPaymentByID(_ context.Context, id int) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, errors.New("payment not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) GetUserPayments(_ context.Context, userID, limit int) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range m.payments {
		if p.UserID == userID && len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockSubscriptionRepo struct {
	active    *models.Subscription
	activeErr error
	replaced  []*models.Subscription
	nextID    int
}

func (m *mockSubscriptionRepo) GetActiveSubscription(_ context.Context, userID int) (*models.Subscription, error) {
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	return m.active, nil
}

func (m *mockSubscriptionRepo) ReplaceActive(_ context.Context, sub *models.Subscription) error {
	m.nextID++
	sub.ID = m.nextID
	sub.IsActive = true
	m.replaced = append(m.replaced, sub)
	m.active = sub
	return nil
}

func (m *mockSubscriptionRepo) ExpireSubscriptions(_ context.Context) error {
	return nil
}

func (m *mockSubscriptionRepo) HasActiveFundedBy(_ context.Context, paymentID int) (bool, error) {
	for _, sub := range m.replaced {
		if sub.PaymentID != nil && *sub.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

type pushCall struct {
	phone       string
	amount      float64
	reference   string
	description string
}

type fakeGateway struct {
	resp   *STKPushResponse
	err    error
	pushes []pushCall
}

func (g *fakeGateway) STKPush(_ context.Context, phone string, amount float64, reference, description string) (*STKPushResponse, error) {
	g.pushes = append(g.pushes, pushCall{phone: phone, amount: amount, reference: reference, description: description})
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}
