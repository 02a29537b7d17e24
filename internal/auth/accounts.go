package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldops-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("username already exists")
)

// NewAccount is the input of Accounts.Create.
type NewAccount struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Role        string
}

// Accounts manages local staff accounts.
type Accounts struct {
	db     *gorm.DB
	hasher *PasswordHasher
}

// NewAccounts creates an account manager. A nil hasher uses the default cost.
func NewAccounts(db *gorm.DB, hasher *PasswordHasher) *Accounts {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &Accounts{db: db, hasher: hasher}
}

// Create stores a new account with a bcrypt password hash.
func (a *Accounts) Create(ctx context.Context, in NewAccount) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleStaff
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}

	var existing int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the account matching username and password.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, "username = ?", strings.TrimSpace(username)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
