package models

import "time"

// GatePassSnapshot: immutable copy of a source bucket's state at the moment
// an allocation consumed from it, embedded in the consuming gate pass.
// Deliberately a separate type from the live buckets: the live balance keeps
// changing, the snapshot never does. No update path exists for this table.
type GatePassSnapshot struct {
	ID               uint         `gorm:"primaryKey"`
	OwnerType        string       `gorm:"size:10;index:idx_snapshot_owner;not null"` // consuming pass kind
	OwnerID          uint         `gorm:"index:idx_snapshot_owner;not null"`
	SourceKind       BucketKind   `gorm:"size:10;not null"`
	SourceGatePassID uint         `gorm:"index;not null"`
	Size             string       `gorm:"size:50;not null"`
	InitialQuantity  float64      `gorm:"not null"`
	CurrentQuantity  float64      `gorm:"not null"` // balance before the debit
	Chamber          string       `gorm:"size:20"`  // filled for storage sources
	Floor            string       `gorm:"size:20"`
	Row              string       `gorm:"size:20;column:row_no"`
	CreatedAt        time.Time
}
