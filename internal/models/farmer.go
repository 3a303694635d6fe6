package models

import "time"

// Farmer: account holder for incoming produce. FatherName is the "S/O" field
// printed on gate passes to disambiguate same-named farmers within a village.
type Farmer struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:100;not null;index"`
	Village    string `gorm:"size:100;index"`
	FatherName string `gorm:"size:100"` // S/O
	Phone      string `gorm:"size:20"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
