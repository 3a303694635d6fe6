package gatepass

import (
	"fmt"

	"coldstore-backend/internal/audit"
	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ReleaseAllocationRequest struct {
	Quantity float64 `json:"quantity"`
}

type ReleaseAllocationResponse struct {
	AllocationID    uint    `json:"allocationId"`
	SourceKind      string  `json:"sourceKind"`
	SourceGatePassID uint   `json:"sourceGatePassId"`
	Size            string  `json:"size"`
	Released        float64 `json:"released"`
	CurrentQuantity float64 `json:"currentQuantity"`
}

// POST /api/allocations/:id/release
// The quantity-remove dialog: put part of an allocation back into its source
// bucket.
func ReleaseAllocationHandler(eng *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		var body ReleaseAllocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		res, err := eng.Release(c.Context(), id, body.Quantity)
		if err != nil {
			return fail(c, err)
		}

		_ = audit.WriteLog(audit.LogOptions{
			ActorName:   "system",
			EntityType:  "allocation",
			EntityID:    id,
			Action:      models.AuditActionRelease,
			Description: fmt.Sprintf("Released %g bags back to %s", res.Released, res.Source),
			After:       res,
		})

		return ok(c, fiber.StatusOK, ReleaseAllocationResponse{
			AllocationID:     id,
			SourceKind:       string(res.Source.Kind),
			SourceGatePassID: res.Source.GatePassID,
			Size:             res.Source.Size,
			Released:         res.Released,
			CurrentQuantity:  res.CurrentQuantity,
		})
	}
}

type AllocationResponse struct {
	ID             uint    `json:"id"`
	CorrelationID  string  `json:"correlationId"`
	SourceKind     string  `json:"sourceKind"`
	SourceBucketID uint    `json:"sourceBucketId"`
	ConsumerKind   string  `json:"consumerKind"`
	ConsumerID     uint    `json:"consumerId"`
	Quantity       float64 `json:"quantity"`
	ReversalOfID   *uint   `json:"reversalOfId,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

// GET /api/allocations?source_kind=grading&source_bucket_id=3&consumer_kind=storage&consumer_id=1
// The lineage trail: every debit and credit, in order.
func ListAllocationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Allocation{})

		if kind := c.Query("source_kind"); kind != "" {
			dbq = dbq.Where("source_kind = ?", kind)
		}
		if idStr := c.Query("source_bucket_id"); idStr != "" {
			var id uint
			if _, err := fmt.Sscan(idStr, &id); err == nil && id > 0 {
				dbq = dbq.Where("source_bucket_id = ?", id)
			}
		}
		if kind := c.Query("consumer_kind"); kind != "" {
			dbq = dbq.Where("consumer_kind = ?", kind)
		}
		if idStr := c.Query("consumer_id"); idStr != "" {
			var id uint
			if _, err := fmt.Sscan(idStr, &id); err == nil && id > 0 {
				dbq = dbq.Where("consumer_id = ?", id)
			}
		}

		var edges []models.Allocation
		if err := dbq.Order("id").Find(&edges).Error; err != nil {
			return fail(c, err)
		}

		resp := make([]AllocationResponse, 0, len(edges))
		for _, e := range edges {
			resp = append(resp, AllocationResponse{
				ID:             e.ID,
				CorrelationID:  e.CorrelationID,
				SourceKind:     string(e.SourceKind),
				SourceBucketID: e.SourceBucketID,
				ConsumerKind:   string(e.ConsumerKind),
				ConsumerID:     e.ConsumerID,
				Quantity:       e.Quantity,
				ReversalOfID:   e.ReversalOfID,
				CreatedAt:      e.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return ok(c, fiber.StatusOK, resp)
	}
}

// GET /api/gate-passes/next-number?type=grading
// Prefills the gatePassNo field on the forms. Informational: the number is
// only reserved when the pass is actually created.
func NextGatePassNumberHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		passType := models.PassType(c.Query("type"))
		switch passType {
		case models.PassTypeIncoming, models.PassTypeGrading, models.PassTypeStorage, models.PassTypeNikasi:
		default:
			return fail(c, fmt.Errorf("%w: type must be one of incoming, grading, storage, nikasi", ledger.ErrInvalidInput))
		}

		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		no, err := ledger.PeekGatePassNo(database.DB, storeID, passType)
		if err != nil {
			return fail(c, err)
		}

		return ok(c, fiber.StatusOK, fiber.Map{"nextVoucherNumber": no})
	}
}
