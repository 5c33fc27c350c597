package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/outbox"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/pkg/logger"
	"github.com/oversightlab/missiondesk/pkg/metrics"
	apperrors "github.com/oversightlab/missiondesk/pkg/errors"
)

// ErrMissionNotFound indicates the mission does not exist.
var ErrMissionNotFound = errors.New("workflow: mission not found")

const maxReviewCommentLength = 1000

// Engine is the single guarded state machine for mission status changes.
// Every status mutation in the system, including kanban board moves, goes
// through one of its transitions.
type Engine struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewEngine constructs a workflow engine over the given database handle.
func NewEngine(db *gorm.DB) (*Engine, error) {
	if db == nil {
		return nil, errors.New("workflow: db is required")
	}
	return &Engine{db: db, log: logger.WithModule("workflow")}, nil
}

// Send moves a DRAFT mission to PENDING. Only the mission's team leader (or
// an admin) may submit; a reviewer notification event is enqueued with the
// transition.
func (e *Engine) Send(ctx context.Context, missionID string, actor *models.User) (*models.Mission, error) {
	return e.transition(ctx, "send", missionID, actor, models.MissionDraft, models.MissionPending, "")
}

// Validate moves a PENDING mission to COMPLETED. Reviewer role required.
func (e *Engine) Validate(ctx context.Context, missionID string, actor *models.User) (*models.Mission, error) {
	return e.transition(ctx, "validate", missionID, actor, models.MissionPending, models.MissionCompleted, "")
}

// Review moves a PENDING mission to REJECTED with a mandatory comment and
// enqueues the rejection email to the team leader.
func (e *Engine) Review(ctx context.Context, missionID string, actor *models.User, comment string) (*models.Mission, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, apperrors.NewValidation(map[string][]string{
			"comment": {"a review comment is required to reject a mission"},
		})
	}
	if utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return nil, apperrors.NewValidation(map[string][]string{
			"comment": {fmt.Sprintf("review comment must be at most %d characters", maxReviewCommentLength)},
		})
	}
	return e.transition(ctx, "review", missionID, actor, models.MissionPending, models.MissionRejected, comment)
}

// Reopen moves a REJECTED mission back to DRAFT so the team leader can edit
// and resubmit it.
func (e *Engine) Reopen(ctx context.Context, missionID string, actor *models.User) (*models.Mission, error) {
	return e.transition(ctx, "reopen", missionID, actor, models.MissionRejected, models.MissionDraft, "")
}

// Apply routes a requested target status through the guarded transitions.
// Used by the kanban board so drag-and-drop cannot bypass the guards.
func (e *Engine) Apply(ctx context.Context, missionID string, actor *models.User, target models.MissionStatus, comment string) (*models.Mission, error) {
	switch target {
	case models.MissionPending:
		return e.Send(ctx, missionID, actor)
	case models.MissionCompleted:
		return e.Validate(ctx, missionID, actor)
	case models.MissionRejected:
		return e.Review(ctx, missionID, actor, comment)
	case models.MissionDraft:
		return e.Reopen(ctx, missionID, actor)
	default:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown mission status %q", target))
	}
}

func (e *Engine) transition(ctx context.Context, name, missionID string, actor *models.User, from, to models.MissionStatus, comment string) (*models.Mission, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var mission models.Mission
	err := e.db.WithContext(ctx).
		Preload("TeamLeader").
		First(&mission, "id = ?", missionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: load mission: %w", err)
	}

	if err := e.authorize(name, &mission, actor); err != nil {
		metrics.MissionTransitions.WithLabelValues(name, "denied").Inc()
		return nil, err
	}

	if mission.Status != from {
		metrics.MissionTransitions.WithLabelValues(name, "invalid").Inc()
		return nil, apperrors.ErrInvalidTransition.WithInternal(
			fmt.Errorf("workflow: %s requires status %s, mission %s is %s", name, from, mission.Number, mission.Status))
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": to}
		if name == "review" {
			updates["review_comment"] = comment
		}

		// Guard on the source status inside the update so a concurrent
		// transition loses cleanly instead of double-applying.
		result := tx.Model(&models.Mission{}).
			Where("id = ? AND status = ?", mission.ID, from).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("workflow: update status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrInvalidTransition.WithInternal(
				fmt.Errorf("workflow: mission %s left %s before %s applied", mission.Number, from, name))
		}

		return e.enqueueEvents(tx, name, &mission, comment)
	})
	if err != nil {
		metrics.MissionTransitions.WithLabelValues(name, "error").Inc()
		return nil, err
	}

	mission.Status = to
	if name == "review" {
		mission.ReviewComment = comment
	}

	metrics.MissionTransitions.WithLabelValues(name, "success").Inc()
	e.log.Info("mission transition applied",
		zap.String("mission", mission.Number),
		zap.String("transition", name),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor.ID))

	return &mission, nil
}

func (e *Engine) authorize(name string, mission *models.Mission, actor *models.User) error {
	role := permissions.ParseGlobalRole(actor.Role)

	switch name {
	case "send", "reopen":
		if !permissions.HasCapability(role, permissions.CapMissionSend) {
			return apperrors.ErrForbidden
		}
		// Team leaders only act on their own missions; admins on any.
		if mission.TeamLeaderID != actor.ID && !role.AtLeast(permissions.RoleAdmin) {
			return apperrors.ErrForbidden
		}
	case "validate", "review":
		if !permissions.HasCapability(role, permissions.CapMissionReview) {
			return apperrors.ErrForbidden
		}
	default:
		return apperrors.ErrForbidden
	}
	return nil
}

func (e *Engine) enqueueEvents(tx *gorm.DB, name string, mission *models.Mission, comment string) error {
	switch name {
	case "send":
		var reviewers []models.User
		if err := tx.
			Where("role IN ? AND is_active = ?", []string{string(permissions.RoleReviewer), string(permissions.RoleAdmin)}, true).
			Find(&reviewers).Error; err != nil {
			return fmt.Errorf("workflow: load reviewers: %w", err)
		}

		recipients := make([]string, 0, len(reviewers))
		for _, reviewer := range reviewers {
			recipients = append(recipients, reviewer.Email)
		}
		if len(recipients) == 0 {
			e.log.Warn("no reviewers to notify", zap.String("mission", mission.Number))
			return nil
		}

		leaderName := ""
		if mission.TeamLeader != nil {
			leaderName = mission.TeamLeader.FullName()
		}
		return outbox.Enqueue(tx, models.EventMissionSubmitted, outbox.MissionSubmittedPayload{
			MissionID:      mission.ID,
			MissionNumber:  mission.Number,
			TeamLeaderName: leaderName,
			Recipients:     recipients,
		})

	case "review":
		if mission.TeamLeader == nil {
			e.log.Warn("rejected mission has no team leader loaded", zap.String("mission", mission.Number))
			return nil
		}
		return outbox.Enqueue(tx, models.EventMissionRejected, outbox.MissionRejectedPayload{
			MissionID:     mission.ID,
			MissionNumber: mission.Number,
			Comment:       comment,
			Recipient:     mission.TeamLeader.Email,
		})
	}
	return nil
}
