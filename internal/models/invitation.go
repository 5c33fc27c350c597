package models

import "time"

// Invitation statuses. Expired is derived from ExpiresAt, not stored.
const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationCancelled = "cancelled"
)

// Invitation is a pending offer to join an organization. The row ID doubles
// as the invitation token sent by email.
type Invitation struct {
	BaseModel

	Email          string     `gorm:"not null;index" json:"email"`
	OrganizationID string     `gorm:"type:uuid;not null;index" json:"organization_id"`
	OrgRole        string     `gorm:"not null;default:u1" json:"org_role"`
	Status         string     `gorm:"not null;default:pending" json:"status"`
	InvitedBy      string     `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt      time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// Expired reports whether the invitation is past its validity window.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
