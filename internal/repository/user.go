package repository

import (
	"context"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	logger.Log.Info("creating user (repo)", zap.String("username", user.Username), zap.String("email", user.Email))
	query := `
	INSERT INTO users (username, email, phone, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.Phone,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	logger.Log.Debug("checking username uniqueness (repo)", zap.String("username", username))
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, username).Scan(&exists)
	if err != nil {
		logger.Log.Error("username check failed (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	logger.Log.Debug("checking email uniqueness (repo)", zap.String("email", email))
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		logger.Log.Error("email check failed (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) IsPhoneTaken(ctx context.Context, phone string) (bool, error) {
	logger.Log.Debug("checking phone uniqueness (repo)", zap.String("phone", phone))
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, phone).Scan(&exists)
	if err != nil {
		logger.Log.Error("phone check failed (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	logger.Log.Debug("fetching user by username (repo)", zap.String("username", username))
	query := `SELECT id, username, email, phone, password_hash, is_active, created_at
	FROM users
	WHERE username = $1`

	var user models.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		logger.Log.Error("fetching user by username failed (repo)", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	logger.Log.Debug("fetching user by id (repo)", zap.Int("user_id", id))
	query := `SELECT id, username, email, phone, password_hash, is_active, created_at
	FROM users
	WHERE id = $1`

	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		logger.Log.Error("fetching user by id failed (repo)", zap.Int("user_id", id), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) SaveRefreshToken(ctx context.Context, userID int, token string) error {
	logger.Log.Debug("saving refresh token (repo)", zap.Int("user_id", userID))
	query := `INSERT INTO refresh_tokens (user_id, token) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, userID, token)
	if err != nil {
		logger.Log.Error("saving refresh token failed (repo)", zap.Error(err))
	}
	return err
}

func (r *UserRepository) IsRefreshTokenValid(ctx context.Context, userID int, token string) (bool, error) {
	logger.Log.Debug("checking refresh token (repo)", zap.Int("user_id", userID))
	query := `SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, token).Scan(&exists)
	if err != nil {
		logger.Log.Error("refresh token check failed (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) DeleteRefreshToken(ctx context.Context, userID int, token string) error {
	logger.Log.Debug("deleting refresh token (repo)", zap.Int("user_id", userID))
	query := `DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2`
	_, err := r.db.Exec(ctx, query, userID, token)
	if err != nil {
		logger.Log.Error("deleting refresh token failed (repo)", zap.Error(err))
	}
	return err
}
