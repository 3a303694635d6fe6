package models

import "time"

// StorageGatePass: physical placement of graded bags into chambers.
type StorageGatePass struct {
	ID                   uint  `gorm:"primaryKey"`
	StoreID              uint  `gorm:"index:idx_storage_store_no,unique;not null"`
	GatePassNo           int64 `gorm:"index:idx_storage_store_no,unique;not null"`
	Date                 time.Time `gorm:"index;not null"`
	Variety              string    `gorm:"size:100;not null"`
	ManualGatePassNumber string    `gorm:"size:50"`
	Remarks              string    `gorm:"size:255"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Buckets   []StorageBucket    `gorm:"foreignKey:StorageGatePassID;constraint:OnDelete:CASCADE"`
	Snapshots []GatePassSnapshot `gorm:"polymorphic:Owner;polymorphicValue:storage"`
}

// StorageBucket: one placement row per (gate pass, size). Both the audit of
// where bags went and a first-class allocatable bucket: nikasi debits
// CurrentQuantity later. Upstream provenance (which grading passes fed it)
// lives in the allocation edges and the embedded snapshots.
type StorageBucket struct {
	ID                uint   `gorm:"primaryKey"`
	StorageGatePassID uint   `gorm:"index:idx_storage_bucket_key,unique;not null"`
	Size              string `gorm:"size:50;index:idx_storage_bucket_key,unique;not null"`
	Chamber           string `gorm:"size:20;not null"`
	Floor             string `gorm:"size:20;not null"`
	Row               string  `gorm:"size:20;not null;column:row_no"`
	WeightPerBagKg    float64 `gorm:"not null"`
	InitialQuantity   float64 `gorm:"not null"`
	CurrentQuantity   float64 `gorm:"not null"`
	Version           int64   `gorm:"not null;default:0"` // optimistic lock
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
