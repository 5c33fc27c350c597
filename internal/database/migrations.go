package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Member{},
		&models.Invitation{},
		&models.Company{},
		&models.Project{},
		&models.Mission{},
		&models.MissionProject{},
		&models.MissionFile{},
		&models.Session{},
		&models.OutboxEvent{},
		&models.FormDraft{},
	)
}

// DefaultAdminUsername is provisioned on first start when no users exist.
const DefaultAdminUsername = "admin"

// SeedData provisions the initial admin account on an empty database. The
// password must be rotated through the profile endpoint after first login.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword("ChangeMe!123")
	if err != nil {
		return err
	}

	admin := models.User{
		Username:  DefaultAdminUsername,
		Email:     "admin@missiondesk.local",
		Password:  hashed,
		FirstName: "Default",
		LastName:  "Admin",
		Role:      string(permissions.RoleAdmin),
		IsActive:  true,
	}
	return db.Create(&admin).Error
}
