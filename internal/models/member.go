package models

// Member links a user to an organization with a tenant-scoped role (u1..u5).
type Member struct {
	BaseModel

	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_member_user_org" json:"user_id"`
	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_member_user_org" json:"organization_id"`
	OrgRole        string `gorm:"not null;default:u1" json:"org_role"`

	User         *User         `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}
