package utils

import (
	"fmt"

	"traintrack/backend/config"
	"traintrack/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection and migrates the schema.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Session{}, "Trainees", &models.SessionTrainee{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&models.User{},
		&models.Training{},
		&models.Question{},
		&models.QuestionSet{},
		&models.Session{},
		&models.SessionTrainee{},
		&models.Attempt{},
		&models.AttemptAnswer{},
		&models.AuditLog{},
	)
}
