package audit

import (
	"encoding/json"
	"fmt"

	"coldstore-backend/internal/database"
	"coldstore-backend/internal/models"
)

type LogOptions struct {
	StoreID     *uint
	ActorID     uint
	ActorName   string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog records an audit entry. The allocation edges are the
// authoritative ledger history; this table is the human-readable trail on
// top of it, so callers treat failures as non-fatal.
func WriteLog(opts LogOptions) error {
	// jsonb columns want the JSON literal null, not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		StoreID:     opts.StoreID,
		ActorID:     opts.ActorID,
		ActorName:   opts.ActorName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}

	return nil
}
