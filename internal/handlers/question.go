package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/middleware"
	"homeworkhelper/internal/services"
	"homeworkhelper/internal/utils/helpers"

	"go.uber.org/zap"
)

const defaultHistoryLimit = 10

type QuestionHandler struct {
	questionService *services.QuestionService
	authService     *services.AuthService
}

func NewQuestionHandler(questionService *services.QuestionService, authService *services.AuthService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		authService:     authService,
	}
}

type askRequest struct {
	Content     string `json:"content"`
	ImageBase64 string `json:"image_base64,omitempty"`
	PaymentID   *int   `json:"payment_id,omitempty"`
}

// Ask godoc
// @Summary Ask a homework question
// @Description Answered immediately under an active subscription or with a
// @Description completed payment_id; otherwise a pay-per-use payment is
// @Description initiated and returned as pending.
// @Tags questions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body askRequest true "Question"
// @Success 200 {object} services.AskResult "Answered"
// @Success 202 {object} services.AskResult "Payment pending"
// @Failure 400 {string} string "Validation error"
// @Failure 402 {string} string "Payment not completed"
// @Failure 409 {string} string "Payment already used"
// @Failure 502 {string} string "Payment service unavailable"
// @Router /api/questions [post]
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		helpers.Error(w, http.StatusNotFound, "user not found")
		return
	}

	result, err := h.questionService.Ask(r.Context(), user, req.Content, req.ImageBase64, req.PaymentID)
	if err != nil {
		writeAskError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Status == services.AskStatusPaymentPending {
		status = http.StatusAccepted
	}
	helpers.JSON(w, status, result)
}

// History godoc
// @Summary Recent questions of the current user
// @Tags questions
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Max rows (default 10)"
// @Success 200 {array} models.Question
// @Router /api/questions [get]
func (h *QuestionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	questions, err := h.questionService.History(r.Context(), userID, limit)
	if err != nil {
		logger.WithCtx(r.Context()).Error("question history failed", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	helpers.JSON(w, http.StatusOK, questions)
}

func writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyQuestion):
		helpers.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPaymentNotFound):
		helpers.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPaymentNotCompleted):
		helpers.Error(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, services.ErrPaymentConsumed):
		helpers.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrGatewayAuth),
		errors.Is(err, services.ErrGatewayRequest),
		errors.Is(err, services.ErrPaymentInitiation):
		logger.WithCtx(r.Context()).Error("payment initiation failed", zap.Error(err))
		helpers.Error(w, http.StatusBadGateway, "payment service unavailable")
	case errors.Is(err, services.ErrAssistantUnavailable):
		logger.WithCtx(r.Context()).Error("assistant failed", zap.Error(err))
		helpers.Error(w, http.StatusBadGateway, "assistant unavailable, please retry")
	default:
		logger.WithCtx(r.Context()).Error("ask question failed", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
	}
}
