package repository

import (
	"ip-tracking-api/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the workflow core owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.WorkflowStage{},
		&models.DocumentRequirement{},
		&models.Submission{},
		&models.Document{},
		&models.SubmissionDocument{},
		&models.TrackingHistory{},
		&models.StageReconciliationJob{},
		&models.Notification{},
	)
}
