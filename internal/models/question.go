package models

import "time"

const (
	QuestionTypeText  = "text"
	QuestionTypeImage = "image"
)

type Question struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	QuestionType string    `json:"question_type"`
	Content      string    `json:"content"`
	Response     string    `json:"response"`
	Cost         float64   `json:"cost"`
	PaymentID    *int      `json:"payment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
