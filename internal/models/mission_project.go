package models

// MissionProject links a mission to an inspected project (a "market") and
// owns the photo evidence collected for it. Rows are removed with their
// mission.
type MissionProject struct {
	BaseModel

	MissionID  string `gorm:"type:uuid;not null;index" json:"mission_id"`
	ProjectID  string `gorm:"type:uuid;not null;index" json:"project_id"`
	MarketName string `json:"market_name"`
	Notes      string `json:"notes"`

	Mission *Mission      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Project *Project      `json:"project,omitempty"`
	Files   []MissionFile `gorm:"foreignKey:MissionProjectID" json:"files,omitempty"`
}
