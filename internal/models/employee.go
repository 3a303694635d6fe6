package models

import "time"

// Employee: referenced as gradedBy on grading gate passes. Login/credentials
// are handled outside this service, so no password fields here.
type Employee struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Role      string `gorm:"size:50"` // e.g. "grader", "munshi"
	CreatedAt time.Time
	UpdatedAt time.Time
}
