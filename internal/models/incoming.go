package models

import "time"

type LotStatus string

const (
	LotStatusOpen   LotStatus = "OPEN"
	LotStatusClosed LotStatus = "CLOSED"
)

// IncomingGatePass: one received lot of produce. Never deleted, only closed.
// TotalGradedBags is maintained by grading creation and may legitimately
// differ from BagsReceived (partial grading, multi-batch grading).
type IncomingGatePass struct {
	ID                   uint `gorm:"primaryKey"`
	StoreID              uint `gorm:"index:idx_incoming_store_no,unique;not null"`
	Store                Store
	GatePassNo           int64 `gorm:"index:idx_incoming_store_no,unique;not null"`
	FarmerID             uint  `gorm:"index;not null"`
	Farmer               Farmer
	Variety              string    `gorm:"size:100;not null"` // e.g. Chipsona 1, 3797, S4
	TruckNumber          string    `gorm:"size:50"`
	BagsReceived         float64   `gorm:"not null"`
	Status               LotStatus `gorm:"size:10;not null;default:OPEN"`
	TotalGradedBags      float64   `gorm:"not null;default:0"`
	ManualGatePassNumber string    `gorm:"size:50"` // unvalidated cross-reference
	Remarks              string    `gorm:"size:255"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	GradingGatePasses []GradingGatePass `gorm:"foreignKey:IncomingGatePassID"`
}
