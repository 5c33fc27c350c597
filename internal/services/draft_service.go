package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oversightlab/missiondesk/internal/models"
)

// ErrDraftNotFound indicates no saved draft exists for the user/form pair.
var ErrDraftNotFound = errors.New("draft service: draft not found")

// DraftService keeps one in-progress form payload per user and form type so
// a half-filled form survives navigation and re-login.
type DraftService struct {
	db *gorm.DB
}

// NewDraftService constructs a DraftService instance.
func NewDraftService(db *gorm.DB) (*DraftService, error) {
	if db == nil {
		return nil, errors.New("draft service: db is required")
	}
	return &DraftService{db: db}, nil
}

// Save upserts the draft payload for the given user and form type.
func (s *DraftService) Save(ctx context.Context, userID, formType string, payload json.RawMessage) (*models.FormDraft, error) {
	ctx = ensureContext(ctx)

	formType = strings.TrimSpace(formType)
	if formType == "" {
		return nil, errors.New("draft service: form type is required")
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return nil, errors.New("draft service: payload is not valid JSON")
	}

	draft := &models.FormDraft{
		UserID:   userID,
		FormType: formType,
		Payload:  datatypes.JSON(payload),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "form_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(draft).Error
	if err != nil {
		return nil, fmt.Errorf("draft service: save draft: %w", err)
	}

	return s.Load(ctx, userID, formType)
}

// Load fetches the saved draft for the given user and form type.
func (s *DraftService) Load(ctx context.Context, userID, formType string) (*models.FormDraft, error) {
	ctx = ensureContext(ctx)

	var draft models.FormDraft
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND form_type = ?", userID, strings.TrimSpace(formType)).
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("draft service: load draft: %w", err)
	}
	return &draft, nil
}

// Clear removes the saved draft, typically after a successful submission.
// Clearing a draft that does not exist is not an error.
func (s *DraftService) Clear(ctx context.Context, userID, formType string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND form_type = ?", userID, strings.TrimSpace(formType)).
		Delete(&models.FormDraft{}).Error
	if err != nil {
		return fmt.Errorf("draft service: clear draft: %w", err)
	}
	return nil
}
