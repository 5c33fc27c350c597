package models

// Project is a public-works project carried out by a company.
type Project struct {
	BaseModel

	Name        string  `gorm:"not null;index" json:"name"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Budget      float64 `json:"budget"`

	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company `json:"company,omitempty"`
}
