package services

import (
	"context"
	"errors"
	"fmt"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"go.uber.org/zap"
)

var (
	ErrEmptyQuestion       = errors.New("provide a question or an image")
	ErrPaymentNotCompleted = errors.New("payment is not completed yet")
	ErrPaymentConsumed     = errors.New("payment already used for another question")
)

type QuestionRepo interface {
	RecordQuestion(ctx context.Context, q *models.Question) error
	GetUserQuestions(ctx context.Context, userID, limit int) ([]*models.Question, error)
	PaymentConsumed(ctx context.Context, paymentID int) (bool, error)
}

type Assistant interface {
	Explain(ctx context.Context, question, imageBase64 string) (string, error)
}

const (
	AskStatusAnswered       = "answered"
	AskStatusPaymentPending = "payment_pending"
)

type AskResult struct {
	Status    string           `json:"status"`
	Question  *models.Question `json:"question,omitempty"`
	PaymentID int              `json:"payment_id,omitempty"`
}

// QuestionService gates questions behind entitlement, collects pay-per-use
// payments through the lifecycle manager, and records answered questions.
type QuestionService struct {
	questions   QuestionRepo
	entitlement *EntitlementService
	payments    *PaymentService
	assistant   Assistant
	price       float64
}

func NewQuestionService(questions QuestionRepo, entitlement *EntitlementService, payments *PaymentService, assistant Assistant, price float64) *QuestionService {
	return &QuestionService{
		questions:   questions,
		entitlement: entitlement,
		payments:    payments,
		assistant:   assistant,
		price:       price,
	}
}

// Ask answers the question when the user is entitled or presents a completed
// unconsumed payment; otherwise it initiates a pay-per-use payment and
// reports it as pending. The question row is created only after the answer
// arrives, so a failed assistant call leaves nothing half-recorded.
func (s *QuestionService) Ask(ctx context.Context, user *models.User, content, imageBase64 string, paymentID *int) (*AskResult, error) {
	if content == "" && imageBase64 == "" {
		return nil, ErrEmptyQuestion
	}

	if s.entitlement.Entitled(ctx, user.ID) {
		logger.Log.Info("question covered by subscription (service)", zap.Int("user_id", user.ID))
		return s.answer(ctx, user, content, imageBase64, nil)
	}

	if paymentID == nil {
		id, err := s.payments.Initiate(ctx, user.ID, s.price, user.Phone, PurposeQuestion, "Homework Question")
		if err != nil {
			return nil, err
		}
		return &AskResult{Status: AskStatusPaymentPending, PaymentID: id}, nil
	}

	payment, err := s.payments.PaymentForUser(ctx, user.ID, *paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, ErrPaymentNotCompleted
	}
	consumed, err := s.questions.PaymentConsumed(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("check payment consumption: %w", err)
	}
	if consumed {
		return nil, ErrPaymentConsumed
	}

	return s.answer(ctx, user, content, imageBase64, paymentID)
}

func (s *QuestionService) answer(ctx context.Context, user *models.User, content, imageBase64 string, paymentID *int) (*AskResult, error) {
	response, err := s.assistant.Explain(ctx, content, imageBase64)
	if err != nil {
		return nil, err
	}

	questionType := models.QuestionTypeText
	if imageBase64 != "" {
		questionType = models.QuestionTypeImage
	}

	q := &models.Question{
		UserID:       user.ID,
		QuestionType: questionType,
		Content:      content,
		Response:     response,
		Cost:         s.price,
		PaymentID:    paymentID,
	}
	if err := s.questions.RecordQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}

	return &AskResult{Status: AskStatusAnswered, Question: q}, nil
}

func (s *QuestionService) History(ctx context.Context, userID, limit int) ([]*models.Question, error) {
	return s.questions.GetUserQuestions(ctx, userID, limit)
}
