package ledger

import "gorm.io/gorm"

// Migrate creates the seat_transitions table and its indexes
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&SeatTransition{})
}
