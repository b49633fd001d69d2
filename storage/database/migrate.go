package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/pkg/logger"
)

// Migrate 创建或更新挑战相关的表
func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.Participant{},
		&model.DailyRecord{},
		&model.SubmissionArtifact{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
