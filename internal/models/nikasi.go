package models

import "time"

// NikasiGatePass: quantity released from storage toward dispatch.
type NikasiGatePass struct {
	ID                   uint  `gorm:"primaryKey"`
	StoreID              uint  `gorm:"index:idx_nikasi_store_no,unique;not null"`
	GatePassNo           int64 `gorm:"index:idx_nikasi_store_no,unique;not null"`
	Date                 time.Time `gorm:"index;not null"`
	Variety              string    `gorm:"size:100;not null"`
	ManualGatePassNumber string    `gorm:"size:50"`
	Remarks              string    `gorm:"size:255"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	OrderDetails []NikasiOrderDetail `gorm:"foreignKey:NikasiGatePassID;constraint:OnDelete:CASCADE"`
	Snapshots    []GatePassSnapshot  `gorm:"polymorphic:Owner;polymorphicValue:nikasi"`
}

// NikasiOrderDetail: display row per debited source bucket.
// QuantityAvailable is the source's CurrentQuantity read in the allocating
// transaction, before the debit. Kept for the printed pass; the live balance
// keeps moving afterwards.
type NikasiOrderDetail struct {
	ID               uint   `gorm:"primaryKey"`
	NikasiGatePassID uint   `gorm:"index;not null"`
	SourceGatePassID uint   `gorm:"index;not null"` // grading or storage pass, per configured source
	Size             string `gorm:"size:50;not null"`
	QuantityAvailable float64 `gorm:"not null"`
	QuantityIssued    float64 `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
