package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"homeworkhelper/internal/config"
	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/middleware"
	"homeworkhelper/internal/models"
	"homeworkhelper/internal/services"
	"homeworkhelper/internal/utils"
	"homeworkhelper/internal/utils/helpers"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService        *services.AuthService
	entitlementService *services.EntitlementService
	cfg                *config.Config
}

func NewAuthHandler(authService *services.AuthService, entitlementService *services.EntitlementService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		entitlementService: entitlementService,
		cfg:                cfg,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Registration data"
// @Success 201 {string} string "User registered"
// @Failure 400 {string} string "Validation error"
// @Router /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("invalid JSON in Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Username == "" || req.Email == "" || req.Phone == "" || req.Password == "" {
		helpers.Error(w, http.StatusBadRequest, "username, email, phone and password are required")
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
	}

	if err := h.authService.RegisterUser(r.Context(), user, req.Password); err != nil {
		logger.WithCtx(r.Context()).Error("registration failed", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	helpers.JSON(w, http.StatusCreated, "user registered")
}

// Login godoc
// @Summary Log a user in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Credentials"
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "Invalid credentials"
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("invalid JSON in Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	accessTTL, _ := time.ParseDuration(h.cfg.AccessTokenTTL)
	refreshTTL, _ := time.ParseDuration(h.cfg.RefreshTokenTTL)

	access, refresh, user, err := h.authService.LoginUser(
		r.Context(),
		req.Username,
		req.Password,
		h.cfg.JWTSecret,
		accessTTL,
		refreshTTL,
	)
	if err != nil {
		helpers.Error(w, http.StatusUnauthorized, err.Error())
		return
	}

	helpers.JSON(w, http.StatusOK, loginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     user.Username,
	})
}

// Refresh godoc
// @Summary Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param input body refreshRequest true "Refresh token"
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "Invalid refresh token"
// @Router /api/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID, ok := h.parseRefreshToken(req.RefreshToken)
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	valid, err := h.authService.ValidateRefreshToken(r.Context(), userID, req.RefreshToken)
	if err != nil || !valid {
		helpers.Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessTTL, _ := time.ParseDuration(h.cfg.AccessTokenTTL)
	access, err := utils.GenerateToken(h.cfg.JWTSecret, userID, accessTTL, "access")
	if err != nil {
		logger.WithCtx(r.Context()).Error("access token generation failed", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	helpers.JSON(w, http.StatusOK, loginResponse{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
	})
}

// Logout godoc
// @Summary Revoke a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param input body refreshRequest true "Refresh token"
// @Success 200 {string} string "Logged out"
// @Router /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID, ok := h.parseRefreshToken(req.RefreshToken)
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	if err := h.authService.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		helpers.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	helpers.JSON(w, http.StatusOK, "logged out")
}

// Profile godoc
// @Summary Current user profile with active subscription
// @Tags auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.UserProfileResponse
// @Failure 401 {string} string "Unauthorized"
// @Router /api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.ContextUserID).(int)

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		helpers.Error(w, http.StatusNotFound, "user not found")
		return
	}

	sub, _ := h.entitlementService.ActiveSubscription(r.Context(), userID)

	helpers.JSON(w, http.StatusOK, models.UserProfileResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Phone:        user.Phone,
		CreatedAt:    user.CreatedAt,
		Subscription: sub,
	})
}

func (h *AuthHandler) parseRefreshToken(tokenString string) (int, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}
	if tokenType, _ := claims["token_type"].(string); tokenType != "refresh" {
		return 0, false
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, false
	}
	return int(userID), true
}
