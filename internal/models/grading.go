package models

import "time"

type AllocationStatus string

const (
	AllocationStatusUnallocated AllocationStatus = "unallocated"
	AllocationStatusPartial     AllocationStatus = "partially_allocated"
	AllocationStatusFull        AllocationStatus = "fully_allocated"
)

// GradingGatePass: splits a lot into per-size buckets.
type GradingGatePass struct {
	ID                   uint  `gorm:"primaryKey"`
	StoreID              uint  `gorm:"index:idx_grading_store_no,unique;not null"`
	GatePassNo           int64 `gorm:"index:idx_grading_store_no,unique;not null"`
	IncomingGatePassID   uint  `gorm:"index;not null"`
	IncomingGatePass     IncomingGatePass
	GradedByID           uint `gorm:"not null"`
	GradedBy             Employee
	Date                 time.Time        `gorm:"index;not null"`
	Variety              string           `gorm:"size:100;not null"`
	AllocationStatus     AllocationStatus `gorm:"size:30;not null;default:unallocated"`
	ManualGatePassNumber string           `gorm:"size:50"`
	Remarks              string           `gorm:"size:255"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Buckets []GradingBucket `gorm:"foreignKey:GradingGatePassID;constraint:OnDelete:CASCADE"`
}

// GradingBucket: live balance for one (grading gate pass, size) key.
// InitialQuantity is set once at creation; CurrentQuantity only moves through
// allocation edges. Version guards concurrent debits.
type GradingBucket struct {
	ID                uint   `gorm:"primaryKey"`
	GradingGatePassID uint   `gorm:"index:idx_grading_bucket_key,unique;not null"`
	Size              string `gorm:"size:50;index:idx_grading_bucket_key,unique;not null"` // e.g. Seed, Medium, Moti
	BagType           string `gorm:"size:50;not null"`                                     // e.g. Jute, Plastic
	WeightPerBagKg    float64 `gorm:"not null"`
	InitialQuantity   float64 `gorm:"not null"`
	CurrentQuantity   float64 `gorm:"not null"`
	Version           int64   `gorm:"not null;default:0"` // optimistic lock
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
