package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/internal/storage"
	"github.com/oversightlab/missiondesk/pkg/logger"
	"github.com/oversightlab/missiondesk/pkg/metrics"
	apperrors "github.com/oversightlab/missiondesk/pkg/errors"
)

var (
	// ErrMissionNotFound indicates the requested mission does not exist.
	ErrMissionNotFound = errors.New("mission service: mission not found")
	// ErrProjectReference indicates a market entry references an unknown project.
	ErrProjectReference = errors.New("mission service: referenced project not found")
)

// PhotoInput is one uploaded photo attached to a market entry.
type PhotoInput struct {
	FileName string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// MarketInput describes one mission project ("market") entry.
type MarketInput struct {
	ProjectID  string
	MarketName string
	Notes      string
	Photos     []PhotoInput
}

// MissionInput captures the validated mission form payload. Dates are parsed
// by the handler; member deduplication and count derivation happen here.
type MissionInput struct {
	StartDate time.Time
	EndDate   time.Time
	Location  string
	MemberIDs []string
	Markets   []MarketInput
}

// ListMissionsInput filters mission listings.
type ListMissionsInput struct {
	Status       models.MissionStatus
	TeamLeaderID string
}

// MissionService implements the mission create/update form contract and the
// surrounding queries.
type MissionService struct {
	db    *gorm.DB
	store storage.BlobStore
	log   *zap.Logger
	now   func() time.Time
}

// NewMissionService constructs a MissionService.
func NewMissionService(db *gorm.DB, store storage.BlobStore) (*MissionService, error) {
	if db == nil {
		return nil, errors.New("mission service: db is required")
	}
	if store == nil {
		return nil, errors.New("mission service: blob store is required")
	}
	return &MissionService{
		db:    db,
		store: store,
		log:   logger.WithModule("missions"),
		now:   time.Now,
	}, nil
}

// GenerateMissionNumber renders the user-visible mission number. The suffix
// is the last six digits of epoch millis: not globally unique, but collision
// requires two creations inside the same millisecond window.
func GenerateMissionNumber(now time.Time) string {
	return fmt.Sprintf("MIS-%d-%06d", now.Year(), now.UnixMilli()%1_000_000)
}

// Create validates the form input and persists the mission, its markets and
// photo evidence. Individual photo upload failures are logged and skipped;
// they never abort the operation.
func (s *MissionService) Create(ctx context.Context, actor *models.User, input MissionInput) (*models.Mission, error) {
	ctx = ensureContext(ctx)

	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !permissions.HasCapability(permissions.ParseGlobalRole(actor.Role), permissions.CapMissionCreate) {
		return nil, apperrors.ErrForbidden
	}

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	memberIDs := normaliseIDs(input.MemberIDs)
	members, err := s.loadMembers(ctx, memberIDs, actor.ID)
	if err != nil {
		return nil, err
	}

	mission := &models.Mission{
		Number:       GenerateMissionNumber(s.now()),
		TeamLeaderID: actor.ID,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Location:     strings.TrimSpace(input.Location),
		AgentCount:   1 + len(members),
		MarketCount:  len(input.Markets),
		Status:       models.MissionDraft,
	}

	var created []models.MissionProject
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mission).Error; err != nil {
			return fmt.Errorf("mission service: create mission: %w", err)
		}
		if len(members) > 0 {
			if err := tx.Model(mission).Association("Members").Append(members); err != nil {
				return fmt.Errorf("mission service: attach members: %w", err)
			}
		}
		created, err = s.createMarkets(tx, mission.ID, input.Markets)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.storePhotos(ctx, created, input.Markets)

	return s.GetByID(ctx, mission.ID)
}

// Update replaces the mission's editable fields, members and markets.
// Only DRAFT missions are editable; a rejected mission must be reopened
// through the workflow first.
func (s *MissionService) Update(ctx context.Context, actor *models.User, missionID string, input MissionInput) (*models.Mission, error) {
	ctx = ensureContext(ctx)

	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var mission models.Mission
	err := s.db.WithContext(ctx).Preload("MissionProjects.Files").First(&mission, "id = ?", missionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mission service: load mission: %w", err)
	}

	role := permissions.ParseGlobalRole(actor.Role)
	if !permissions.HasCapability(role, permissions.CapMissionEdit) {
		return nil, apperrors.ErrForbidden
	}
	if mission.TeamLeaderID != actor.ID && !role.AtLeast(permissions.RoleAdmin) {
		return nil, apperrors.ErrForbidden
	}
	if mission.Status != models.MissionDraft {
		return nil, apperrors.ErrInvalidTransition.WithInternal(
			fmt.Errorf("mission service: mission %s is %s, only drafts are editable", mission.Number, mission.Status))
	}

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	memberIDs := normaliseIDs(input.MemberIDs)
	members, err := s.loadMembers(ctx, memberIDs, mission.TeamLeaderID)
	if err != nil {
		return nil, err
	}

	var created []models.MissionProject
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"start_date":   input.StartDate,
			"end_date":     input.EndDate,
			"location":     strings.TrimSpace(input.Location),
			"agent_count":  1 + len(members),
			"market_count": len(input.Markets),
		}
		if err := tx.Model(&mission).Updates(updates).Error; err != nil {
			return fmt.Errorf("mission service: update mission: %w", err)
		}

		if err := tx.Model(&mission).Association("Members").Replace(members); err != nil {
			return fmt.Errorf("mission service: replace members: %w", err)
		}

		// markets are replaced wholesale; stored photos of removed markets
		// are cleaned up outside the transaction
		if err := s.deleteMarkets(tx, mission.ID); err != nil {
			return err
		}
		created, err = s.createMarkets(tx, mission.ID, input.Markets)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, mp := range mission.MissionProjects {
		for _, file := range mp.Files {
			if err := s.store.Delete(ctx, blobKeyFromURL(file.URL)); err != nil {
				s.log.Warn("blob cleanup failed", zap.String("url", file.URL), zap.Error(err))
			}
		}
	}

	s.storePhotos(ctx, created, input.Markets)

	return s.GetByID(ctx, mission.ID)
}

// GetByID loads a mission with all relations.
func (s *MissionService) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	ctx = ensureContext(ctx)

	var mission models.Mission
	err := s.db.WithContext(ctx).
		Preload("TeamLeader").
		Preload("Members").
		Preload("MissionProjects.Project.Company").
		Preload("MissionProjects.Files").
		First(&mission, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mission service: get mission: %w", err)
	}
	return &mission, nil
}

// List returns missions matching the filters, newest first.
func (s *MissionService) List(ctx context.Context, input ListMissionsInput) ([]models.Mission, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Preload("TeamLeader").
		Preload("MissionProjects").
		Order("created_at DESC")
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.TeamLeaderID != "" {
		query = query.Where("team_leader_id = ?", input.TeamLeaderID)
	}

	var missions []models.Mission
	if err := query.Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("mission service: list missions: %w", err)
	}
	return missions, nil
}

// Delete removes a mission together with its markets and files. Stored
// blobs are removed best effort.
func (s *MissionService) Delete(ctx context.Context, actor *models.User, missionID string) error {
	ctx = ensureContext(ctx)

	if actor == nil {
		return apperrors.ErrUnauthorized
	}

	mission, err := s.GetByID(ctx, missionID)
	if err != nil {
		return err
	}

	role := permissions.ParseGlobalRole(actor.Role)
	if mission.TeamLeaderID != actor.ID && !role.AtLeast(permissions.RoleAdmin) {
		return apperrors.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deleteMarkets(tx, mission.ID); err != nil {
			return err
		}
		if err := tx.Model(mission).Association("Members").Clear(); err != nil {
			return fmt.Errorf("mission service: clear members: %w", err)
		}
		if err := tx.Delete(&models.Mission{}, "id = ?", mission.ID).Error; err != nil {
			return fmt.Errorf("mission service: delete mission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, mp := range mission.MissionProjects {
		for _, file := range mp.Files {
			if err := s.store.Delete(ctx, blobKeyFromURL(file.URL)); err != nil {
				s.log.Warn("blob cleanup failed", zap.String("url", file.URL), zap.Error(err))
			}
		}
	}
	return nil
}

// ListFiles returns photo evidence for the gallery, optionally scoped to one
// mission.
func (s *MissionService) ListFiles(ctx context.Context, missionID string) ([]models.MissionFile, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Joins("JOIN mission_projects ON mission_projects.id = mission_files.mission_project_id").
		Order("mission_files.created_at DESC")
	if missionID != "" {
		query = query.Where("mission_projects.mission_id = ?", missionID)
	}

	var files []models.MissionFile
	if err := query.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("mission service: list files: %w", err)
	}
	return files, nil
}

func (s *MissionService) validateInput(input MissionInput) error {
	fields := map[string][]string{}

	if input.StartDate.IsZero() {
		fields["start_date"] = append(fields["start_date"], "start date is required")
	}
	if input.EndDate.IsZero() {
		fields["end_date"] = append(fields["end_date"], "end date is required")
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		fields["end_date"] = append(fields["end_date"], "end date must not be before start date")
	}
	if strings.TrimSpace(input.Location) == "" {
		fields["location"] = append(fields["location"], "location is required")
	}
	for i, market := range input.Markets {
		if strings.TrimSpace(market.ProjectID) == "" {
			key := fmt.Sprintf("markets[%d].project_id", i)
			fields[key] = append(fields[key], "project id is required")
		}
	}

	if len(fields) > 0 {
		return apperrors.NewValidation(fields)
	}
	return nil
}

// loadMembers resolves member IDs to users, excluding the team leader who is
// counted separately.
func (s *MissionService) loadMembers(ctx context.Context, memberIDs []string, teamLeaderID string) ([]models.User, error) {
	filtered := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != teamLeaderID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	var members []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", filtered).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("mission service: load members: %w", err)
	}
	if len(members) != len(filtered) {
		return nil, apperrors.NewValidation(map[string][]string{
			"member_ids": {"one or more member ids are unknown"},
		})
	}
	return members, nil
}

// createMarkets persists one MissionProject per market entry and returns the
// created rows in input order, so callers can correlate them back to the
// markets by position.
func (s *MissionService) createMarkets(tx *gorm.DB, missionID string, markets []MarketInput) ([]models.MissionProject, error) {
	created := make([]models.MissionProject, 0, len(markets))
	for i := range markets {
		market := &markets[i]

		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", strings.TrimSpace(market.ProjectID)).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("mission service: check project: %w", err)
		}
		if count == 0 {
			return nil, ErrProjectReference
		}

		mp := models.MissionProject{
			MissionID:  missionID,
			ProjectID:  strings.TrimSpace(market.ProjectID),
			MarketName: strings.TrimSpace(market.MarketName),
			Notes:      strings.TrimSpace(market.Notes),
		}
		if err := tx.Create(&mp).Error; err != nil {
			return nil, fmt.Errorf("mission service: create mission project: %w", err)
		}
		created = append(created, mp)
	}
	return created, nil
}

func (s *MissionService) deleteMarkets(tx *gorm.DB, missionID string) error {
	if err := tx.
		Where("mission_project_id IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).Model(&models.MissionProject{}).Select("id").Where("mission_id = ?", missionID)).
		Delete(&models.MissionFile{}).Error; err != nil {
		return fmt.Errorf("mission service: delete mission files: %w", err)
	}
	if err := tx.Where("mission_id = ?", missionID).Delete(&models.MissionProject{}).Error; err != nil {
		return fmt.Errorf("mission service: delete mission projects: %w", err)
	}
	return nil
}

// storePhotos uploads photo evidence sequentially; every failure is logged
// and skipped so one bad file never sinks the submission. The MissionProject
// rows align with the markets by position: two markets may reference the
// same project, so matching by project id would misattribute their photos.
func (s *MissionService) storePhotos(ctx context.Context, mps []models.MissionProject, markets []MarketInput) {
	for i := range markets {
		if i >= len(mps) {
			return
		}
		mp := &mps[i]
		for _, photo := range markets[i].Photos {
			if err := s.storePhoto(ctx, mp, photo); err != nil {
				metrics.PhotoUploads.WithLabelValues("skipped").Inc()
				s.log.Warn("photo upload skipped",
					zap.String("mission_id", mp.MissionID),
					zap.String("file", photo.FileName),
					zap.Error(err))
				continue
			}
			metrics.PhotoUploads.WithLabelValues("stored").Inc()
		}
	}
}

func (s *MissionService) storePhoto(ctx context.Context, mp *models.MissionProject, photo PhotoInput) error {
	name := path.Base(strings.TrimSpace(photo.FileName))
	if name == "" || name == "." || name == "/" {
		return errors.New("mission service: photo file name is required")
	}

	key := fmt.Sprintf("missions/%s/%s/%s", mp.MissionID, mp.ID, name)
	url, err := s.store.Put(ctx, key, photo.Reader, photo.Size, photo.MimeType)
	if err != nil {
		return fmt.Errorf("mission service: store photo: %w", err)
	}

	meta, err := json.Marshal(models.FileMetadata{
		OriginalName: name,
		Size:         photo.Size,
		MimeType:     photo.MimeType,
	})
	if err != nil {
		return fmt.Errorf("mission service: marshal metadata: %w", err)
	}

	file := models.MissionFile{
		MissionProjectID: mp.ID,
		URL:              url,
		Metadata:         datatypes.JSON(meta),
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return fmt.Errorf("mission service: create mission file: %w", err)
	}
	return nil
}

func blobKeyFromURL(url string) string {
	return strings.TrimPrefix(strings.TrimPrefix(url, "/uploads"), "/")
}
