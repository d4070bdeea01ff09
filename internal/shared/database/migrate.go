package database

import (
	"seatkeeper/internal/ledger"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := ledger.Migrate(db); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
