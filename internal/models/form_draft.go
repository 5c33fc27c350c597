package models

import "gorm.io/datatypes"

// FormDraft stores an in-progress form payload scoped to one user and one
// form type, with an explicit load/save/clear lifecycle.
type FormDraft struct {
	BaseModel

	UserID   string         `gorm:"type:uuid;not null;uniqueIndex:idx_draft_user_form" json:"user_id"`
	FormType string         `gorm:"not null;uniqueIndex:idx_draft_user_form" json:"form_type"`
	Payload  datatypes.JSON `json:"payload"`
}
