package repository

import (
	"context"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type QuestionRepository struct {
	db *pgxpool.Pool
}

func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) RecordQuestion(ctx context.Context, q *models.Question) error {
	logger.Log.Info("recording question (repo)",
		zap.Int("user_id", q.UserID), zap.String("question_type", q.QuestionType))
	query := `
	INSERT INTO questions (user_id, question_type, content, response, cost, payment_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		q.UserID,
		q.QuestionType,
		q.Content,
		q.Response,
		q.Cost,
		q.PaymentID,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		logger.Log.Error("recording question failed (repo)", zap.Error(err))
	}
	return err
}

func (r *QuestionRepository) GetUserQuestions(ctx context.Context, userID, limit int) ([]*models.Question, error) {
	query := `
	SELECT id, user_id, question_type, content, response, cost, payment_id, created_at
	FROM questions
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		logger.Log.Error("listing questions failed (repo)", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(
			&q.ID,
			&q.UserID,
			&q.QuestionType,
			&q.Content,
			&q.Response,
			&q.Cost,
			&q.PaymentID,
			&q.CreatedAt,
		); err != nil {
			logger.Log.Error("scanning question failed (repo)", zap.Error(err))
			return nil, err
		}
		questions = append(questions, &q)
	}
	return questions, rows.Err()
}

// PaymentConsumed reports whether a question already references the payment.
// A pay-per-use payment covers exactly one question.
func (r *QuestionRepository) PaymentConsumed(ctx context.Context, paymentID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM questions WHERE payment_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, paymentID).Scan(&exists)
	if err != nil {
		logger.Log.Error("checking payment consumption failed (repo)", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return exists, err
}
