package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// Newest-first history per seat
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seat_transitions_history
		ON seat_transitions (product_id, seat_id, occurred_at DESC, id DESC);
	`).Error
	if err != nil {
		return err
	}

	// Lock attempts per user
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seat_transitions_user
		ON seat_transitions (user_id)
		WHERE user_id IS NOT NULL;
	`).Error
	if err != nil {
		return err
	}

	return nil
}
