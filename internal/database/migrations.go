package database

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/models"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Migration struct {
	Name string
	Run  func(*gorm.DB) error
}

// GetMigrations lists schema changes in the order they must run. Never
// reorder or rename an entry that has shipped.
func GetMigrations() []Migration {
	return []Migration{
		{
			Name: "CreateUsageRecords",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.UsageRecord{})
			},
		},
		{
			Name: "CreateUsersChatsMessages",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.User{}, &models.Chat{}, &models.Message{})
			},
		},
		{
			Name: "CreateRequestAndAuditLogs",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.RequestLog{}, &models.AuditLog{})
			},
		},
	}
}

// RunMigrations applies every migration not yet recorded, each in its own
// transaction together with its record.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	for _, migration := range GetMigrations() {
		var record models.MigrationRecord
		result := db.Where("name = ?", migration.Name).First(&record)

		if result.Error == gorm.ErrRecordNotFound {
			logger.LogEvent(logrus.InfoLevel, "Running migration", logrus.Fields{"migration": migration.Name})

			err := db.Transaction(func(tx *gorm.DB) error {
				if err := migration.Run(tx); err != nil {
					return err
				}

				return tx.Create(&models.MigrationRecord{Name: migration.Name}).Error
			})

			if err != nil {
				return fmt.Errorf("migration '%s' failed: %v", migration.Name, err)
			}
		} else if result.Error != nil {
			return fmt.Errorf("failed to check migration status: %v", result.Error)
		}
	}

	return nil
}
