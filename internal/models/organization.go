package models

import "gorm.io/datatypes"

// Organization is the tenant boundary. Users attach through Member rows.
type Organization struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`

	Members     []Member     `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Invitations []Invitation `gorm:"foreignKey:OrganizationID" json:"invitations,omitempty"`
}
