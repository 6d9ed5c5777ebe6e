package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию таблиц календаря.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Booking{},
		&Event{},
	)
}
