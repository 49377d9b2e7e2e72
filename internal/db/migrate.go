package db

import (
	"fmt"

	"github.com/macdems/buildbot/internal/config"
	"github.com/macdems/buildbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.SourceStamp{},
		&models.Builder{},
		&models.Buildset{},
		&models.BuildsetSourceStamp{},
		&models.BuildsetProperty{},
		&models.BuildRequest{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBuilders upserts Builder rows from configuration.
func SeedBuilders(db *gorm.DB, builders []config.BuilderConfig) error {
	for _, bc := range builders {
		builder := models.Builder{
			ID:   bc.ID,
			Name: bc.Name,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&builder)
		if result.Error != nil {
			return fmt.Errorf("db: seed builder %q: %w", bc.Name, result.Error)
		}
	}
	return nil
}
