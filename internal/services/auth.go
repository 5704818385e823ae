package services

import (
	"context"
	"errors"
	"time"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"
	"homeworkhelper/internal/utils"

	"go.uber.org/zap"
)

type AuthService struct {
	repo UserRepo
}

func NewAuthService(repo UserRepo) *AuthService {
	return &AuthService{repo: repo}
}

type UserRepo interface {
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	IsPhoneTaken(ctx context.Context, phone string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	SaveRefreshToken(ctx context.Context, userID int, token string) error
	IsRefreshTokenValid(ctx context.Context, userID int, token string) (bool, error)
	DeleteRefreshToken(ctx context.Context, userID int, token string) error
}

func (s *AuthService) RegisterUser(ctx context.Context, input *models.User, plainPassword string) error {
	logger.Log.Info("registering user (service)", zap.String("username", input.Username), zap.String("email", input.Email))
	if exists, err := s.repo.IsUsernameTaken(ctx, input.Username); exists || err != nil {
		if err != nil {
			logger.Log.Error("username check failed", zap.Error(err))
		}
		return errors.New("username already taken")
	}
	if exists, err := s.repo.IsEmailTaken(ctx, input.Email); exists || err != nil {
		if err != nil {
			logger.Log.Error("email check failed", zap.Error(err))
		}
		return errors.New("email already registered")
	}
	if exists, err := s.repo.IsPhoneTaken(ctx, input.Phone); exists || err != nil {
		if err != nil {
			logger.Log.Error("phone check failed", zap.Error(err))
		}
		return errors.New("phone number already registered")
	}

	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		logger.Log.Error("password hashing failed", zap.Error(err))
		return err
	}

	input.PasswordHash = hashed
	input.IsActive = true

	if err := s.repo.CreateUser(ctx, input); err != nil {
		logger.Log.Error("user creation failed", zap.Error(err))
		return err
	}
	logger.Log.Info("user registered (service)", zap.String("username", input.Username))
	return nil
}

func (s *AuthService) LoginUser(
	ctx context.Context,
	username, password, jwtSecret string,
	accessTTL, refreshTTL time.Duration,
) (string, string, *models.User, error) {
	logger.Log.Info("login attempt (service)", zap.String("username", username))
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Warn("user not found (service)", zap.String("username", username), zap.Error(err))
		return "", "", nil, errors.New("invalid credentials")
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.Warn("wrong password (service)", zap.String("username", username))
		return "", "", nil, errors.New("invalid credentials")
	}

	accessToken, err := utils.GenerateToken(jwtSecret, user.ID, accessTTL, "access")
	if err != nil {
		logger.Log.Error("access token generation failed", zap.Error(err))
		return "", "", nil, err
	}

	refreshToken, err := utils.GenerateToken(jwtSecret, user.ID, refreshTTL, "refresh")
	if err != nil {
		logger.Log.Error("refresh token generation failed", zap.Error(err))
		return "", "", nil, err
	}

	if err := s.repo.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		logger.Log.Error("refresh token save failed", zap.Error(err))
		return "", "", nil, err
	}

	logger.Log.Info("login successful (service)", zap.String("username", username))
	return accessToken, refreshToken, user, nil
}

func (s *AuthService) ValidateRefreshToken(ctx context.Context, userID int, token string) (bool, error) {
	logger.Log.Debug("validating refresh token (service)", zap.Int("user_id", userID))
	return s.repo.IsRefreshTokenValid(ctx, userID, token)
}

func (s *AuthService) Logout(ctx context.Context, userID int, token string) error {
	logger.Log.Info("logout (service)", zap.Int("user_id", userID))
	return s.repo.DeleteRefreshToken(ctx, userID, token)
}

func (s *AuthService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		logger.Log.Warn("user not found by id (service)", zap.Int("user_id", id), zap.Error(err))
	}
	return user, err
}
