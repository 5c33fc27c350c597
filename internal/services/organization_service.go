package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/permissions"
)

var (
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = errors.New("organization service: organization not found")
	// ErrMemberNotFound indicates the user is not a member of the organization.
	ErrMemberNotFound = errors.New("organization service: member not found")
	// ErrMemberAlreadyExists prevents duplicate memberships.
	ErrMemberAlreadyExists = errors.New("organization service: user is already a member")
)

// CreateOrganizationInput captures the attributes required to register an organization.
type CreateOrganizationInput struct {
	Name        string
	Description string
	Settings    map[string]any
}

// UpdateOrganizationInput represents mutable organization fields.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	Settings    map[string]any
}

// OrganizationService manages organizations and their memberships.
type OrganizationService struct {
	db *gorm.DB
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{db: db}, nil
}

// Create registers a new organization.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("organization service: name is required")
	}

	org := &models.Organization{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		org.Settings = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, fmt.Errorf("organization service: create organization: %w", err)
	}
	return org, nil
}

// GetByID loads an organization and its memberships.
func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).
		Preload("Members.User").
		First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// List returns all organizations ordered by creation date.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return orgs, nil
}

// Update modifies metadata for an organization.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" && name != org.Name {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		updates["settings"] = datatypes.JSON(data)
	}

	if len(updates) == 0 {
		return &org, nil
	}

	if err := s.db.WithContext(ctx).Model(&org).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("organization service: update organization: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Delete removes an organization together with its memberships and
// outstanding invitations.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrganizationNotFound
	}
	if err != nil {
		return fmt.Errorf("organization service: load organization: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&models.Member{}).Error; err != nil {
			return fmt.Errorf("organization service: delete members: %w", err)
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
			return fmt.Errorf("organization service: delete invitations: %w", err)
		}
		if err := tx.Delete(&org).Error; err != nil {
			return fmt.Errorf("organization service: delete organization: %w", err)
		}
		return nil
	})
}

// AddMember attaches a user to the organization with a tenant role.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, userID string, role permissions.OrgRole) (*models.Member, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, fmt.Errorf("organization service: invalid org role %q", role)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("organization service: check membership: %w", err)
	}
	if count > 0 {
		return nil, ErrMemberAlreadyExists
	}

	member := &models.Member{
		UserID:         userID,
		OrganizationID: orgID,
		OrgRole:        string(role),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, fmt.Errorf("organization service: add member: %w", err)
	}
	return member, nil
}

// UpdateMemberRole changes the tenant-scoped role of a member.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, orgID, userID string, role permissions.OrgRole) error {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return fmt.Errorf("organization service: invalid org role %q", role)
	}

	result := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Update("org_role", string(role))
	if result.Error != nil {
		return fmt.Errorf("organization service: update member role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// RemoveMember detaches a user from the organization.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.Member{})
	if result.Error != nil {
		return fmt.Errorf("organization service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}
