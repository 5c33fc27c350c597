package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
)

// MissionSubmittedPayload notifies reviewers that a mission awaits review.
type MissionSubmittedPayload struct {
	MissionID      string   `json:"mission_id"`
	MissionNumber  string   `json:"mission_number"`
	TeamLeaderName string   `json:"team_leader_name"`
	Recipients     []string `json:"recipients"`
}

// MissionRejectedPayload carries the mandatory review comment back to the
// mission's team leader.
type MissionRejectedPayload struct {
	MissionID     string `json:"mission_id"`
	MissionNumber string `json:"mission_number"`
	Comment       string `json:"comment"`
	Recipient     string `json:"recipient"`
}

// InvitationCreatedPayload invites a prospective member into an organization.
type InvitationCreatedPayload struct {
	Recipient        string    `json:"recipient"`
	OrganizationName string    `json:"organization_name"`
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Enqueue persists a domain event as part of the supplied transaction so the
// event commits (or rolls back) together with the mutation that produced it.
func Enqueue(tx *gorm.DB, eventType string, payload any) error {
	if tx == nil {
		return errors.New("outbox: transaction handle is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s payload: %w", eventType, err)
	}

	event := models.OutboxEvent{
		Type:    eventType,
		Payload: datatypes.JSON(data),
		Status:  models.OutboxPending,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("outbox: enqueue %s: %w", eventType, err)
	}
	return nil
}
