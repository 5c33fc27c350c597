package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/outbox"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/pkg/crypto"
	"github.com/oversightlab/missiondesk/pkg/logger"
)

// invitationTTL is how long an invitation stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

var (
	// ErrInvitationNotFound indicates an unknown or already consumed token.
	ErrInvitationNotFound = errors.New("invitation service: invitation not found")
	// ErrInvitationExpired indicates the invitation is past its window.
	ErrInvitationExpired = errors.New("invitation service: invitation expired")
	// ErrInvitationNotPending rejects accepting or cancelling a settled invitation.
	ErrInvitationNotPending = errors.New("invitation service: invitation is not pending")
)

// CreateInvitationInput describes a new invitation to join an organization.
type CreateInvitationInput struct {
	Email          string
	OrganizationID string
	OrgRole        permissions.OrgRole
	InvitedBy      string
}

// AcceptInvitationInput carries the account details a prospective member
// supplies when redeeming their token.
type AcceptInvitationInput struct {
	Token     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// InvitationService issues, redeems and expires organization invitations.
type InvitationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInvitationService constructs an InvitationService instance.
func NewInvitationService(db *gorm.DB) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	return &InvitationService{db: db, now: time.Now}, nil
}

// Create issues an invitation and enqueues the notification email in the
// same transaction.
func (s *InvitationService) Create(ctx context.Context, input CreateInvitationInput) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.New("invitation service: email is required")
	}
	if !input.OrgRole.Valid() {
		return nil, fmt.Errorf("invitation service: invalid org role %q", input.OrgRole)
	}

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", input.OrganizationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load organization: %w", err)
	}

	invitation := &models.Invitation{
		Email:          email,
		OrganizationID: org.ID,
		OrgRole:        string(input.OrgRole),
		Status:         models.InvitationPending,
		InvitedBy:      input.InvitedBy,
		ExpiresAt:      s.now().Add(invitationTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invitation).Error; err != nil {
			return fmt.Errorf("invitation service: create invitation: %w", err)
		}
		return outbox.Enqueue(tx, models.EventInvitationCreated, outbox.InvitationCreatedPayload{
			Recipient:        invitation.Email,
			OrganizationName: org.Name,
			Token:            invitation.ID,
			ExpiresAt:        invitation.ExpiresAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// List returns the invitations of one organization, newest first.
func (s *InvitationService) List(ctx context.Context, orgID string) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)

	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: list invitations: %w", err)
	}
	return invitations, nil
}

// Accept redeems a pending invitation. If no account exists for the invited
// email one is created with the supplied credentials; the global role is
// derived from the tenant role through the sanctioned mapping.
func (s *InvitationService) Accept(ctx context.Context, input AcceptInvitationInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&invitation, "id = ?", strings.TrimSpace(input.Token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load invitation: %w", err)
	}

	if invitation.Status != models.InvitationPending {
		return nil, ErrInvitationNotPending
	}
	if invitation.Expired(s.now()) {
		return nil, ErrInvitationExpired
	}

	orgRole := permissions.ParseOrgRole(invitation.OrgRole)

	var user *models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.First(&existing, "email = ?", invitation.Email).Error
		switch {
		case err == nil:
			user = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			user, err = s.createUserFromInvitation(tx, &invitation, orgRole, input)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("invitation service: find user: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Member{}).
			Where("organization_id = ? AND user_id = ?", invitation.OrganizationID, user.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("invitation service: check membership: %w", err)
		}
		if count == 0 {
			member := models.Member{
				UserID:         user.ID,
				OrganizationID: invitation.OrganizationID,
				OrgRole:        string(orgRole),
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("invitation service: create membership: %w", err)
			}
		}

		now := s.now()
		updates := map[string]any{
			"status":      models.InvitationAccepted,
			"accepted_at": &now,
		}
		if err := tx.Model(&invitation).Updates(updates).Error; err != nil {
			return fmt.Errorf("invitation service: mark accepted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *InvitationService) createUserFromInvitation(tx *gorm.DB, invitation *models.Invitation, orgRole permissions.OrgRole, input AcceptInvitationInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = invitation.Email
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, errors.New("invitation service: password is required for a new account")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("invitation service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     invitation.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      string(permissions.DefaultGlobalRole(orgRole)),
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("invitation service: create user: %w", err)
	}
	return user, nil
}

// Cancel voids a pending invitation so the token can no longer be redeemed.
func (s *InvitationService) Cancel(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Update("status", models.InvitationCancelled)
	if result.Error != nil {
		return fmt.Errorf("invitation service: cancel invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Invitation{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("invitation service: cancel invitation: %w", err)
		}
		if count == 0 {
			return ErrInvitationNotFound
		}
		return ErrInvitationNotPending
	}
	return nil
}

// ExpireOverdue cancels pending invitations past their validity window.
// Intended to run from the maintenance scheduler.
func (s *InvitationService) ExpireOverdue(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationPending, s.now()).
		Update("status", models.InvitationCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: expire invitations: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logger.Info(fmt.Sprintf("expired %d overdue invitations", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
