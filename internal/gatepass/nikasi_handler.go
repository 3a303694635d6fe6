package gatepass

import (
	"fmt"
	"strings"

	"coldstore-backend/internal/audit"
	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NikasiAllocationRequest struct {
	Size               string  `json:"size"`
	QuantityToAllocate float64 `json:"quantityToAllocate"`
}

// NikasiGradingRef mirrors the storage request shape. The field name is
// historical: when the service runs with NIKASI_SOURCE=storage (the default),
// gradingGatePassId carries a storage gate pass id — the UI reuses the same
// allocation widget for both stages.
type NikasiGradingRef struct {
	GradingGatePassID uint                      `json:"gradingGatePassId"`
	Allocations       []NikasiAllocationRequest `json:"allocations"`
}

type CreateNikasiGatePassRequest struct {
	StoreID              *uint              `json:"storeId"`
	GatePassNo           int64              `json:"gatePassNo"`
	Date                 string             `json:"date"`
	Variety              string             `json:"variety"`
	GradingGatePasses    []NikasiGradingRef `json:"gradingGatePasses"`
	Remarks              string             `json:"remarks"`
	ManualGatePassNumber string             `json:"manualGatePassNumber"`
}

type NikasiOrderDetailResponse struct {
	Size              string  `json:"size"`
	GradingGatePassID uint    `json:"gradingGatePassId"`
	QuantityAvailable float64 `json:"quantityAvailable"`
	QuantityIssued    float64 `json:"quantityIssued"`
}

type NikasiGatePassResponse struct {
	ID                       uint                        `json:"id"`
	GatePassNo               int64                       `json:"gatePassNo"`
	Date                     string                      `json:"date"`
	Variety                  string                      `json:"variety"`
	OrderDetails             []NikasiOrderDetailResponse `json:"orderDetails"`
	GradingGatePassSnapshots []SnapshotResponse          `json:"gradingGatePassSnapshots"`
	ManualGatePassNumber     string                      `json:"manualGatePassNumber,omitempty"`
	Remarks                  string                      `json:"remarks,omitempty"`
}

func nikasiToResponse(p models.NikasiGatePass) NikasiGatePassResponse {
	resp := NikasiGatePassResponse{
		ID:                       p.ID,
		GatePassNo:               p.GatePassNo,
		Date:                     p.Date.Format("2006-01-02"),
		Variety:                  p.Variety,
		GradingGatePassSnapshots: snapshotsToResponse(p.Snapshots),
		ManualGatePassNumber:     p.ManualGatePassNumber,
		Remarks:                  p.Remarks,
	}
	for _, d := range p.OrderDetails {
		resp.OrderDetails = append(resp.OrderDetails, NikasiOrderDetailResponse{
			Size:              d.Size,
			GradingGatePassID: d.SourceGatePassID,
			QuantityAvailable: d.QuantityAvailable,
			QuantityIssued:    d.QuantityIssued,
		})
	}
	return resp
}

// POST /api/nikasi-gate-passes
func CreateNikasiGatePassHandler(eng *ledger.Engine, sourceKind models.BucketKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateNikasiGatePassRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		date, err := parseDate(body.Date)
		if err != nil {
			return fail(c, err)
		}

		storeID, err := resolveStoreID(body.StoreID)
		if err != nil {
			return fail(c, err)
		}

		reqs := make([]ledger.Request, 0)
		for _, gp := range body.GradingGatePasses {
			for _, a := range gp.Allocations {
				reqs = append(reqs, ledger.Request{
					Source: ledger.BucketRef{
						Kind:       sourceKind,
						GatePassID: gp.GradingGatePassID,
						Size:       strings.TrimSpace(a.Size),
					},
					Quantity: a.QuantityToAllocate,
				})
			}
		}

		var pass models.NikasiGatePass
		err = eng.WithRetry(c.Context(), func(tx *gorm.DB) error {
			no, err := ledger.NextGatePassNo(tx, storeID, models.PassTypeNikasi, body.GatePassNo)
			if err != nil {
				return err
			}

			pass = models.NikasiGatePass{
				StoreID:              storeID,
				GatePassNo:           no,
				Date:                 date,
				Variety:              strings.TrimSpace(body.Variety),
				ManualGatePassNumber: strings.TrimSpace(body.ManualGatePassNumber),
				Remarks:              body.Remarks,
			}
			if err := tx.Create(&pass).Error; err != nil {
				return err
			}

			res, err := eng.Allocate(tx, ledger.Consumer{Kind: models.ConsumerKindNikasi, ID: pass.ID}, reqs)
			if err != nil {
				return err
			}
			pass.Snapshots = res.Snapshots

			pass.OrderDetails = pass.OrderDetails[:0]
			for _, b := range res.Buckets {
				detail := models.NikasiOrderDetail{
					NikasiGatePassID: pass.ID,
					SourceGatePassID: b.Source.GatePassID,
					Size:             b.Source.Size,
					QuantityAvailable: b.PriorQuantity,
					QuantityIssued:    b.Quantity,
				}
				if err := tx.Create(&detail).Error; err != nil {
					return err
				}
				pass.OrderDetails = append(pass.OrderDetails, detail)
			}
			return nil
		})
		if err != nil {
			return fail(c, err)
		}

		_ = audit.WriteLog(audit.LogOptions{
			StoreID:     &storeID,
			ActorName:   "system",
			EntityType:  "nikasi_gate_pass",
			EntityID:    pass.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Nikasi gate pass #%d: %d order details", pass.GatePassNo, len(pass.OrderDetails)),
			After:       pass,
		})

		return ok(c, fiber.StatusCreated, nikasiToResponse(pass))
	}
}

// GET /api/nikasi-gate-passes
func ListNikasiGatePassesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		var passes []models.NikasiGatePass
		err = database.DB.
			Preload("OrderDetails").
			Preload("Snapshots").
			Where("store_id = ?", storeID).
			Order("gate_pass_no DESC").
			Find(&passes).Error
		if err != nil {
			return fail(c, err)
		}

		resp := make([]NikasiGatePassResponse, 0, len(passes))
		for _, p := range passes {
			resp = append(resp, nikasiToResponse(p))
		}
		return ok(c, fiber.StatusOK, resp)
	}
}
