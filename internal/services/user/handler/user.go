package handler

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"verdant-system/internal/database/models"
	"verdant-system/internal/services/errs"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	Firstname string
	Lastname  string
	Role      string
	StoreID   int64
}

func (s *UserHandler) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, errs.Validation("username, email and password are required")
	}
	if input.StoreID == 0 {
		return nil, errs.Validation("store_id required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", input.Username, input.Email).
		First(&existing).Error
	if err == nil {
		return nil, errs.Validation("username or email already taken")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errs.Transient(err)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Transient(err)
	}

	role := input.Role
	if role == "" {
		role = "cashier"
	}

	user := models.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  string(pwHash),
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		Role:      role,
		StoreID:   input.StoreID,
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return &user, nil
}

// Authenticate checks the credentials and stamps last_login. The caller
// issues the token.
func (s *UserHandler) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errs.Validation("username and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("user", "%s", username)
		}
		return nil, errs.Transient(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errs.Validation("invalid credentials")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, errs.Transient(err)
	}

	return &user, nil
}

func (s *UserHandler) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("user", "%d", userID)
		}
		return nil, errs.Transient(err)
	}
	return &user, nil
}
