package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
)

var (
	// ErrCompanyNotFound indicates the requested company does not exist.
	ErrCompanyNotFound = errors.New("company service: company not found")
	// ErrCompanyInUse blocks deletion while projects belong to the company.
	ErrCompanyInUse = errors.New("company service: company still owns projects")
)

// CreateCompanyInput captures attributes required to register a company.
type CreateCompanyInput struct {
	Name               string
	RegistrationNumber string
	Address            string
	ContactName        string
	ContactEmail       string
	ContactPhone       string
}

// UpdateCompanyInput represents mutable company fields.
type UpdateCompanyInput struct {
	Name         *string
	Address      *string
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
}

// CompanyService manages lifecycle operations for companies.
type CompanyService struct {
	db *gorm.DB
}

// NewCompanyService constructs a CompanyService instance.
func NewCompanyService(db *gorm.DB) (*CompanyService, error) {
	if db == nil {
		return nil, errors.New("company service: db is required")
	}
	return &CompanyService{db: db}, nil
}

// Create registers a new company.
func (s *CompanyService) Create(ctx context.Context, input CreateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("company service: name is required")
	}

	company := &models.Company{
		Name:               name,
		RegistrationNumber: strings.TrimSpace(input.RegistrationNumber),
		Address:            strings.TrimSpace(input.Address),
		ContactName:        strings.TrimSpace(input.ContactName),
		ContactEmail:       strings.TrimSpace(input.ContactEmail),
		ContactPhone:       strings.TrimSpace(input.ContactPhone),
	}
	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, fmt.Errorf("company service: create company: %w", err)
	}
	return company, nil
}

// GetByID loads a company with its projects.
func (s *CompanyService) GetByID(ctx context.Context, id string) (*models.Company, error) {
	ctx = ensureContext(ctx)

	var company models.Company
	err := s.db.WithContext(ctx).
		Preload("Projects").
		First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("company service: get company: %w", err)
	}
	return &company, nil
}

// List returns all companies ordered by name.
func (s *CompanyService) List(ctx context.Context) ([]models.Company, error) {
	ctx = ensureContext(ctx)

	var companies []models.Company
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("company service: list companies: %w", err)
	}
	return companies, nil
}

// Update modifies company metadata.
func (s *CompanyService) Update(ctx context.Context, id string, input UpdateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	var company models.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("company service: load company: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			updates["name"] = name
		}
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.ContactName != nil {
		updates["contact_name"] = strings.TrimSpace(*input.ContactName)
	}
	if input.ContactEmail != nil {
		updates["contact_email"] = strings.TrimSpace(*input.ContactEmail)
	}
	if input.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*input.ContactPhone)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&company).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("company service: update company: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// Delete removes a company without projects.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var company models.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCompanyNotFound
	}
	if err != nil {
		return fmt.Errorf("company service: load company: %w", err)
	}

	var projects int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("company_id = ?", id).Count(&projects).Error; err != nil {
		return fmt.Errorf("company service: count projects: %w", err)
	}
	if projects > 0 {
		return ErrCompanyInUse
	}

	if err := s.db.WithContext(ctx).Delete(&company).Error; err != nil {
		return fmt.Errorf("company service: delete company: %w", err)
	}
	return nil
}
