package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/pkg/crypto"
	"github.com/oversightlab/missiondesk/pkg/metrics"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user service: user not found")
	// ErrUserExists prevents duplicate usernames or emails.
	ErrUserExists = errors.New("user service: username or email already taken")
	// ErrInvalidCredentials masks which part of a login attempt was wrong.
	ErrInvalidCredentials = errors.New("user service: invalid credentials")
	// ErrUserDisabled rejects logins for deactivated accounts.
	ErrUserDisabled = errors.New("user service: account is disabled")
)

// CreateUserInput describes a new account created by an administrator.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      permissions.GlobalRole
}

// UpdateUserInput represents mutable user fields. Nil pointers leave the
// corresponding column untouched.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *permissions.GlobalRole
	IsActive  *bool
}

// UserService manages accounts and credential verification.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, now: time.Now}, nil
}

// Create registers a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, errors.New("user service: username and email are required")
	}
	if input.Password == "" {
		return nil, errors.New("user service: password is required")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("user service: check uniqueness: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	role := input.Role
	if !role.Valid() {
		role = permissions.RoleViewer
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      string(role),
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// GetByID loads a user by primary key.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByUsername loads a user by their login name.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", strings.TrimSpace(username)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List returns all accounts ordered by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// Update modifies account attributes.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && email != user.Email {
			var count int64
			err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", email, id).
				Count(&count).Error
			if err != nil {
				return nil, fmt.Errorf("user service: check email: %w", err)
			}
			if count > 0 {
				return nil, ErrUserExists
			}
			updates["email"] = email
		}
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("user service: invalid role %q", *input.Role)
		}
		updates["role"] = string(*input.Role)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ChangePassword rehashes and stores a new password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(user.Password, current) {
		return ErrInvalidCredentials
	}
	if next == "" {
		return errors.New("user service: new password is required")
	}

	hash, err := crypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("user service: change password: %w", err)
	}
	return nil
}

// Delete removes an account together with its memberships, sessions and
// form drafts. Missions led by the user are left in place.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Member{}).Error; err != nil {
			return fmt.Errorf("user service: delete memberships: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("user service: delete sessions: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.FormDraft{}).Error; err != nil {
			return fmt.Errorf("user service: delete drafts: %w", err)
		}
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("user service: delete user: %w", err)
		}
		return nil
	})
}

// Authenticate verifies a username/password pair and records the login.
func (s *UserService) Authenticate(ctx context.Context, username, password, remoteIP string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrUserDisabled
	}

	now := s.now()
	updates := map[string]any{
		"last_login_at": &now,
		"last_login_ip": remoteIP,
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}
