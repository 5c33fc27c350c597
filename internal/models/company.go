package models

// Company is a contractor executing projects under agency oversight.
type Company struct {
	BaseModel

	Name               string `gorm:"not null;index" json:"name"`
	RegistrationNumber string `gorm:"uniqueIndex" json:"registration_number"`
	Address            string `json:"address"`
	ContactName        string `json:"contact_name"`
	ContactEmail       string `json:"contact_email"`
	ContactPhone       string `json:"contact_phone"`

	Projects []Project `gorm:"foreignKey:CompanyID" json:"projects,omitempty"`
}
