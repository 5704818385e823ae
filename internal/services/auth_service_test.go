package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeworkhelper/internal/models"
	"homeworkhelper/internal/utils"
)

// Mock user repository (stub)
type mockUserRepo struct {
	users    map[string]*models.User
	lastUser *models.User
}

func (m *mockUserRepo) IsUsernameTaken(_ context.Context, username string) (bool, error) {
	_, exists := m.users[username]
	return exists, nil
}

func (m *mockUserRepo) IsEmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) IsPhoneTaken(_ context.Context, phone string) (bool, error) {
	for _, u := range m.users {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *models.User) error {
	user.ID = len(m.users) + 1
	m.users[user.Username] = user
	m.lastUser = user
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockUserRepo) SaveRefreshToken(_ context.Context, userID int, token string) error {
	return nil
}
func (m *mockUserRepo) IsRefreshTokenValid(_ context.Context, userID int, token string) (bool, error) {
	return true, nil
}
func (m *mockUserRepo) DeleteRefreshToken(_ context.Context, userID int, token string) error {
	return nil
}

func TestRegisterUser(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Phone:    "254700000001",
	}

	err := service.RegisterUser(context.Background(), user, "secret")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if repo.lastUser == nil || repo.lastUser.PasswordHash == "" {
		t.Fatal("password not hashed or user not saved")
	}
}

func TestRegisterUser_DuplicatePhone(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"existing": {ID: 1, Username: "existing", Phone: "254700000001"},
	}}
	service := NewAuthService(repo)

	err := service.RegisterUser(context.Background(), &models.User{
		Username: "newuser",
		Email:    "new@example.com",
		Phone:    "254700000001",
	}, "secret")
	if err == nil {
		t.Fatal("expected an error for a duplicate phone number")
	}
}

func TestLoginUser_Success(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	hashed, _ := utils.HashPassword("secret")
	repo.users["testuser"] = &models.User{
		ID:           1,
		Username:     "testuser",
		PasswordHash: hashed,
	}

	access, refresh, user, err := service.LoginUser(context.Background(), "testuser", "secret", "mysecret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if access == "" || refresh == "" {
		t.Fatal("tokens not generated")
	}
	if user == nil || user.ID != 1 {
		t.Fatal("user not returned")
	}
}

func TestLoginUser_Fail(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	_, _, _, err := service.LoginUser(context.Background(), "unknown", "pass", "secret", time.Minute, time.Hour)
	if err == nil {
		t.Fatal("expected an error when logging in an unknown user")
	}
}
