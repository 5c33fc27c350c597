package models

import "gorm.io/datatypes"

// MissionFile is an uploaded photo attached to a mission project. Immutable
// after creation; Metadata records the original name, size and MIME type.
type MissionFile struct {
	BaseModel

	MissionProjectID string         `gorm:"type:uuid;not null;index" json:"mission_project_id"`
	URL              string         `gorm:"not null" json:"url"`
	Metadata         datatypes.JSON `json:"metadata"`

	MissionProject *MissionProject `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// FileMetadata is the decoded shape of MissionFile.Metadata.
type FileMetadata struct {
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
}
