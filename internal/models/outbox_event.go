package models

import (
	"time"

	"gorm.io/datatypes"
)

// Outbox event statuses.
const (
	OutboxPending   = "pending"
	OutboxDelivered = "delivered"
	OutboxFailed    = "failed"
)

// Domain event types emitted by the mission workflow and membership system.
const (
	EventMissionSubmitted  = "mission.submitted"
	EventMissionRejected   = "mission.rejected"
	EventInvitationCreated = "invitation.created"
)

// OutboxEvent records a domain event persisted in the same transaction as
// the mutation that produced it. A dispatcher delivers the corresponding
// notification out of band; delivery failures never roll back domain state.
type OutboxEvent struct {
	BaseModel

	Type        string         `gorm:"not null;index" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	Status      string         `gorm:"not null;default:pending;index" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   string         `json:"last_error,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}
