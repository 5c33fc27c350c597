package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/pkg/crypto"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

var (
	// ErrSessionNotFound indicates that no session matches the provided token.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session revoked by the user or an admin.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a refresh token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionService manages creation, rotation, and revocation of user sessions.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		now:        clock,
	}, nil
}

// CreateSession generates a new session row and issues a fresh token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User, meta SessionMetadata) (TokenPair, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return TokenPair{}, errors.New("session service: user is required")
	}

	refresh, err := crypto.GenerateToken(48)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	session := models.Session{
		UserID:           user.ID,
		RefreshTokenHash: crypto.HashToken(refresh),
		ExpiresAt:        s.now().Add(s.refreshTTL),
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return TokenPair{}, fmt.Errorf("session service: create session: %w", err)
	}

	access, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    user.ID,
		SessionID: session.ID,
		Role:      user.Role,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates the refresh token and issues a new token pair.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		First(&session, "refresh_token_hash = ?", crypto.HashToken(refreshToken)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: load session: %w", err)
	}

	now := s.now()
	if session.RevokedAt != nil {
		return TokenPair{}, ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return TokenPair{}, ErrSessionExpired
	}
	if session.User == nil || !session.User.IsActive {
		return TokenPair{}, ErrSessionRevoked
	}

	newRefresh, err := crypto.GenerateToken(48)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	updates := map[string]any{
		"refresh_token_hash": crypto.HashToken(newRefresh),
		"expires_at":         now.Add(s.refreshTTL),
	}
	if err := s.db.WithContext(ctx).Model(&session).Updates(updates).Error; err != nil {
		return TokenPair{}, fmt.Errorf("session service: rotate session: %w", err)
	}

	access, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		SessionID: session.ID,
		Role:      session.User.Role,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Revoke marks the session unusable. Revoking an unknown session is not an error.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}

	now := s.now()
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", &now).Error
	if err != nil {
		return fmt.Errorf("session service: revoke session: %w", err)
	}
	return nil
}

// PruneExpired deletes sessions past their expiry. Invoked by the
// maintenance cron.
func (s *SessionService) PruneExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: prune sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
