package database

import (
	"log"

	"coldstore-backend/internal/config"
	"coldstore-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	switch cfg.DatabaseDriver {
	case "sqlite":
		DB, err = gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{})
	default:
		DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("Could not connect to the database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	if err := SeedDefaultStore(DB); err != nil {
		log.Fatalf("Store seeding failed: %v", err)
	}

	log.Println("Database connected. Migration complete.")
}

// Migrate creates/updates the schema. Shared with the tests, which run the
// same migration against in-memory sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Store{},
		&models.GatePassCounter{},
		&models.Farmer{},
		&models.Employee{},
		&models.IncomingGatePass{},
		&models.GradingGatePass{},
		&models.GradingBucket{},
		&models.StorageGatePass{},
		&models.StorageBucket{},
		&models.NikasiGatePass{},
		&models.NikasiOrderDetail{},
		&models.Allocation{},
		&models.GatePassSnapshot{},
		&models.AuditLog{},
	)
}

// SeedDefaultStore makes sure at least one store exists; gate pass requests
// that do not name a store fall back to the first one.
func SeedDefaultStore(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Store{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	log.Println("No store found, creating the default store...")
	return db.Create(&models.Store{Name: "Main Cold Storage"}).Error
}
