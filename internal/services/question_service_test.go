package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeworkhelper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockQuestionRepo struct {
	questions []*models.Question
}

func (m *mockQuestionRepo) RecordQuestion(_ context.Context, q *models.Question) error {
	q.ID = len(m.questions) + 1
	q.CreatedAt = time.Now()
	m.questions = append(m.questions, q)
	return nil
}

func (m *mockQuestionRepo) GetUserQuestions(_ context.Context, userID, limit int) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.UserID == userID && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) PaymentConsumed(_ context.Context, paymentID int) (bool, error) {
	for _, q := range m.questions {
		if q.PaymentID != nil && *q.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAssistant struct {
	answer string
	err    error
	calls  int
}

func (a *fakeAssistant) Explain(_ context.Context, question, imageBase64 string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

type questionFixture struct {
	questions *mockQuestionRepo
	payments  *mockPaymentRepo
	subs      *mockSubscriptionRepo
	gateway   *fakeGateway
	assistant *fakeAssistant
	service   *QuestionService
	user      *models.User
}

func newQuestionFixture(subs *mockSubscriptionRepo) *questionFixture {
	f := &questionFixture{
		questions: &mockQuestionRepo{},
		payments:  newMockPaymentRepo(),
		subs:      subs,
		gateway:   &fakeGateway{resp: dispatchedResponse()},
		assistant: &fakeAssistant{answer: "Start by counting the apples."},
	}
	paymentService := newPaymentService(f.payments, f.subs, f.gateway)
	entitlement := NewEntitlementService(f.subs)
	f.service = NewQuestionService(f.questions, entitlement, paymentService, f.assistant, 10)
	f.user = &models.User{ID: 7, Username: "wanjiku", Phone: "254700000001"}
	return f
}

func activeMonthly(userID int) *mockSubscriptionRepo {
	end := time.Now().Add(15 * 24 * time.Hour)
	return &mockSubscriptionRepo{active: &models.Subscription{
		UserID:   userID,
		PlanType: models.PlanMonthly,
		EndDate:  &end,
		IsActive: true,
	}}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	_, err := f.service.Ask(context.Background(), f.user, "", "", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_SubscriberAnsweredWithoutPayment(t *testing.T) {
	f := newQuestionFixture(activeMonthly(7))

	result, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)
	assert.Equal(t, AskStatusAnswered, result.Status)
	require.NotNil(t, result.Question)
	assert.Nil(t, result.Question.PaymentID, "subscription-covered questions carry no payment")
	assert.Empty(t, f.payments.payments, "no payment may be created for a subscriber")
	assert.Empty(t, f.gateway.pushes)
}

func TestAsk_UnentitledGetsPendingPayment(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	result, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)
	assert.Equal(t, AskStatusPaymentPending, result.Status)
	assert.NotZero(t, result.PaymentID)
	assert.Nil(t, result.Question)
	assert.Equal(t, 0, f.assistant.calls, "no answer before the payment settles")
	assert.Empty(t, f.questions.questions)
}

func TestAsk_CompletedPaymentAnswers(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	pending, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)

	paymentService := newPaymentService(f.payments, f.subs, f.gateway)
	require.NoError(t, paymentService.Reconcile(context.Background(), successCallback("co-1")))

	result, err := f.service.Ask(context.Background(), f.user, "2+2?", "", &pending.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, AskStatusAnswered, result.Status)
	require.NotNil(t, result.Question.PaymentID)
	assert.Equal(t, pending.PaymentID, *result.Question.PaymentID)
}

func TestAsk_PendingPaymentRejected(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	pending, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)

	_, err = f.service.Ask(context.Background(), f.user, "2+2?", "", &pending.PaymentID)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
}

func TestAsk_ConsumedPaymentRejected(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	pending, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)

	paymentService := newPaymentService(f.payments, f.subs, f.gateway)
	require.NoError(t, paymentService.Reconcile(context.Background(), successCallback("co-1")))

	_, err = f.service.Ask(context.Background(), f.user, "2+2?", "", &pending.PaymentID)
	require.NoError(t, err)

	_, err = f.service.Ask(context.Background(), f.user, "again?", "", &pending.PaymentID)
	assert.ErrorIs(t, err, ErrPaymentConsumed)
}

func TestAsk_ForeignPaymentRejected(t *testing.T) {
	f := newQuestionFixture(&mockSubscriptionRepo{})

	pending, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.NoError(t, err)

	stranger := &models.User{ID: 8, Username: "otieno", Phone: "254700000002"}
	_, err = f.service.Ask(context.Background(), stranger, "2+2?", "", &pending.PaymentID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestAsk_AssistantFailureRecordsNothing(t *testing.T) {
	f := newQuestionFixture(activeMonthly(7))
	f.assistant.err = errors.New("timeout")

	_, err := f.service.Ask(context.Background(), f.user, "2+2?", "", nil)
	require.Error(t, err)
	assert.Empty(t, f.questions.questions)
}

func TestAsk_ImageQuestionType(t *testing.T) {
	f := newQuestionFixture(activeMonthly(7))

	result, err := f.service.Ask(context.Background(), f.user, "what is this?", "aGVsbG8=", nil)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionTypeImage, result.Question.QuestionType)
}
