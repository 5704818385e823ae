package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"homeworkhelper/internal/logger"

	"go.uber.org/zap"
)

// ErrAssistantUnavailable means the completion API failed; the question was
// not answered and must not be billed as answered.
var ErrAssistantUnavailable = errors.New("assistant service unavailable")

const promptPrefix = "Explain this homework question in simple terms a parent can use to help their child: "

// AssistantService sends a question (text, optionally with an inline image)
// to the chat-completions API and returns the explanation text.
type AssistantService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewAssistantService(apiKey, baseURL, model string) *AssistantService {
	return &AssistantService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *AssistantService) Explain(ctx context.Context, question, imageBase64 string) (string, error) {
	prompt := promptPrefix + question

	var content any = prompt
	if imageBase64 != "" {
		content = []map[string]any{
			{"type": "text", "text": prompt},
			{"type": "image_url", "image_url": "data:image/jpeg;base64," + imageBase64},
		}
	}

	payload := chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Log.Error("assistant request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Error("assistant request rejected", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: status %d", ErrAssistantUnavailable, resp.StatusCode)
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrAssistantUnavailable)
	}
	return res.Choices[0].Message.Content, nil
}
