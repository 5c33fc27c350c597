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
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("project service: project not found")
	// ErrProjectInUse blocks deletion while missions reference the project.
	ErrProjectInUse = errors.New("project service: project is referenced by missions")
)

// CreateProjectInput captures attributes required to register a project.
type CreateProjectInput struct {
	Name        string
	Description string
	Location    string
	Budget      float64
	CompanyID   string
}

// UpdateProjectInput represents mutable project fields.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Location    *string
	Budget      *float64
	CompanyID   *string
}

// ProjectService manages lifecycle operations for projects.
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db}, nil
}

// Create registers a new project under a company.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("project service: name is required")
	}
	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return nil, errors.New("project service: company id is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("project service: check company: %w", err)
	}
	if count == 0 {
		return nil, ErrCompanyNotFound
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Budget:      input.Budget,
		CompanyID:   companyID,
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}
	return s.GetByID(ctx, project.ID)
}

// GetByID loads a project with its company relation.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Company").
		First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// List returns all projects ordered by creation date, company preloaded.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	var projects []models.Project
	if err := s.db.WithContext(ctx).Preload("Company").Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}
	return projects, nil
}

// Update modifies project metadata.
func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Budget != nil {
		updates["budget"] = *input.Budget
	}
	if input.CompanyID != nil {
		companyID := strings.TrimSpace(*input.CompanyID)
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("project service: check company: %w", err)
		}
		if count == 0 {
			return nil, ErrCompanyNotFound
		}
		updates["company_id"] = companyID
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&project).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("project service: update project: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// Delete removes a project unless missions still reference it.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("project service: load project: %w", err)
	}

	var refs int64
	if err := s.db.WithContext(ctx).Model(&models.MissionProject{}).Where("project_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("project service: count references: %w", err)
	}
	if refs > 0 {
		return ErrProjectInUse
	}

	if err := s.db.WithContext(ctx).Delete(&project).Error; err != nil {
		return fmt.Errorf("project service: delete project: %w", err)
	}
	return nil
}
