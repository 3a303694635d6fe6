package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionClose   AuditAction = "close"
	AuditActionRelease AuditAction = "release"
)

// AuditLog: who did what to which gate pass. Ledger reversals go through
// release edges, not through this table, so there is no undo flow here.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	StoreID *uint `json:"store_id"`

	ActorID   uint   `json:"actor_id"`
	ActorName string `gorm:"size:100" json:"actor_name"`

	// e.g. "incoming_gate_pass", "grading_gate_pass", "allocation"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action AuditAction `gorm:"size:20" json:"action"`

	Description string `gorm:"size:255" json:"description"`

	// Previous and resulting state (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
