package database

import (
	"log"

	"github.com/havenbay/booking-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.AvailabilitySlot{},
		&models.ReservationLock{},
		&models.Booking{},
		&models.Ticket{},
		&models.TicketSequence{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Counters may never exceed inventory regardless of application bugs.
	db.Exec(`
		ALTER TABLE availability_slots
		DROP CONSTRAINT IF EXISTS chk_capacity_ledger
	`)
	db.Exec(`
		ALTER TABLE availability_slots
		ADD CONSTRAINT chk_capacity_ledger
		CHECK (booked_capacity >= 0 AND reserved_capacity >= 0
			AND booked_capacity + reserved_capacity <= total_capacity)
	`)

	return db
}
