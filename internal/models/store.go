package models

import "time"

// Store: the cold storage itself. Gate pass numbering is owned per store.
type Store struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Address   string `gorm:"size:255"`
	Phone     string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PassType string

const (
	PassTypeIncoming PassType = "incoming"
	PassTypeGrading  PassType = "grading"
	PassTypeStorage  PassType = "storage"
	PassTypeNikasi   PassType = "nikasi"
)

// GatePassCounter: per store, per pass type sequence. LastNo is advanced
// inside the same transaction that creates the gate pass, guarded by Version.
type GatePassCounter struct {
	ID        uint     `gorm:"primaryKey"`
	StoreID   uint     `gorm:"index:idx_counter_store_type,unique;not null"`
	Store     Store
	PassType  PassType `gorm:"size:20;index:idx_counter_store_type,unique;not null"`
	LastNo    int64    `gorm:"not null"`
	Version   int64    `gorm:"not null;default:0"` // optimistic lock
	CreatedAt time.Time
	UpdatedAt time.Time
}
