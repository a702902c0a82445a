package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursepass-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// EnsureIndexes adds postgres-only partial indexes the worker claim query
// relies on. It is a no-op on other dialects.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificate_record_runnable
		ON certificate_record(requested_at)
		WHERE status = 'processing';
	`).Error; err != nil {
		return fmt.Errorf("create idx_certificate_record_runnable: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_enrollment_active_student
		ON enrollment(student_id, scope_type)
		WHERE status = 'active';
	`).Error; err != nil {
		return fmt.Errorf("create idx_enrollment_active_student: %w", err)
	}
	return nil
}
