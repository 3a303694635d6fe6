package gatepass

import (
	"fmt"
	"strings"

	"coldstore-backend/internal/audit"
	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StorageAllocationRequest struct {
	Size               string  `json:"size"`
	QuantityToAllocate float64 `json:"quantityToAllocate"`
	Chamber            string  `json:"chamber"`
	Floor              string  `json:"floor"`
	Row                string  `json:"row"`
}

type StorageGradingRef struct {
	GradingGatePassID uint                       `json:"gradingGatePassId"`
	Allocations       []StorageAllocationRequest `json:"allocations"`
}

type CreateStorageGatePassRequest struct {
	StoreID              *uint               `json:"storeId"`
	GatePassNo           int64               `json:"gatePassNo"`
	Date                 string              `json:"date"`
	Variety              string              `json:"variety"`
	GradingGatePasses    []StorageGradingRef `json:"gradingGatePasses"`
	Remarks              string              `json:"remarks"`
	ManualGatePassNumber string              `json:"manualGatePassNumber"`
}

type SnapshotResponse struct {
	GradingGatePassID uint    `json:"gradingGatePassId"`
	Size              string  `json:"size"`
	InitialQuantity   float64 `json:"initialQuantity"`
	CurrentQuantity   float64 `json:"currentQuantity"`
	Chamber           string  `json:"chamber,omitempty"`
	Floor             string  `json:"floor,omitempty"`
	Row               string  `json:"row,omitempty"`
}

type StorageBucketResponse struct {
	Size            string  `json:"size"`
	Chamber         string  `json:"chamber"`
	Floor           string  `json:"floor"`
	Row             string  `json:"row"`
	InitialQuantity float64 `json:"initialQuantity"`
	CurrentQuantity float64 `json:"currentQuantity"`
	WeightPerBagKg  float64 `json:"weightPerBagKg"`
	TotalWeightKg   float64 `json:"totalWeightKg"`
}

type StorageGatePassResponse struct {
	ID                       uint                    `json:"id"`
	GatePassNo               int64                   `json:"gatePassNo"`
	Date                     string                  `json:"date"`
	Variety                  string                  `json:"variety"`
	GradingGatePassSnapshots []SnapshotResponse      `json:"gradingGatePassSnapshots"`
	OrderDetails             []StorageBucketResponse `json:"orderDetails"`
	ManualGatePassNumber     string                  `json:"manualGatePassNumber,omitempty"`
	Remarks                  string                  `json:"remarks,omitempty"`
}

func snapshotsToResponse(snaps []models.GatePassSnapshot) []SnapshotResponse {
	resp := make([]SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		resp = append(resp, SnapshotResponse{
			GradingGatePassID: s.SourceGatePassID,
			Size:              s.Size,
			InitialQuantity:   s.InitialQuantity,
			CurrentQuantity:   s.CurrentQuantity,
			Chamber:           s.Chamber,
			Floor:             s.Floor,
			Row:               s.Row,
		})
	}
	return resp
}

func storageToResponse(p models.StorageGatePass) StorageGatePassResponse {
	resp := StorageGatePassResponse{
		ID:                       p.ID,
		GatePassNo:               p.GatePassNo,
		Date:                     p.Date.Format("2006-01-02"),
		Variety:                  p.Variety,
		GradingGatePassSnapshots: snapshotsToResponse(p.Snapshots),
		ManualGatePassNumber:     p.ManualGatePassNumber,
		Remarks:                  p.Remarks,
	}
	for _, b := range p.Buckets {
		resp.OrderDetails = append(resp.OrderDetails, StorageBucketResponse{
			Size:            b.Size,
			Chamber:         b.Chamber,
			Floor:           b.Floor,
			Row:             b.Row,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			WeightPerBagKg:  b.WeightPerBagKg,
			TotalWeightKg:   bucketWeightKg(b.WeightPerBagKg, b.CurrentQuantity).InexactFloat64(),
		})
	}
	return resp
}

// POST /api/storage-gate-passes
//
// One storage pass owns one bucket per size, so rows of the same size coming
// from several grading passes merge into a single placement — which requires
// them to name the same chamber/floor/row. Per-source detail survives in the
// snapshots and the allocation edges.
func CreateStorageGatePassHandler(eng *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStorageGatePassRequest
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

		type placement struct {
			chamber, floor, row string
			weightPerBagKg      float64
			quantity            float64
		}
		reqs := make([]ledger.Request, 0)
		placements := make(map[string]*placement) // by size
		sizeOrder := make([]string, 0)

		for _, gp := range body.GradingGatePasses {
			for _, a := range gp.Allocations {
				chamber := strings.TrimSpace(a.Chamber)
				floor := strings.TrimSpace(a.Floor)
				row := strings.TrimSpace(a.Row)
				if chamber == "" || floor == "" || row == "" {
					return fail(c, fmt.Errorf("%w: chamber, floor and row are required for size %s of grading pass %d",
						ledger.ErrInvalidInput, a.Size, gp.GradingGatePassID))
				}

				size := strings.TrimSpace(a.Size)
				if p, exists := placements[size]; exists {
					if p.chamber != chamber || p.floor != floor || p.row != row {
						return fail(c, fmt.Errorf("%w: size %s is placed at conflicting locations within one gate pass",
							ledger.ErrInvalidInput, size))
					}
					p.quantity += a.QuantityToAllocate
				} else {
					placements[size] = &placement{chamber: chamber, floor: floor, row: row, quantity: a.QuantityToAllocate}
					sizeOrder = append(sizeOrder, size)
				}

				reqs = append(reqs, ledger.Request{
					Source: ledger.BucketRef{
						Kind:       models.BucketKindGrading,
						GatePassID: gp.GradingGatePassID,
						Size:       size,
					},
					Quantity: a.QuantityToAllocate,
				})
			}
		}

		var pass models.StorageGatePass
		err = eng.WithRetry(c.Context(), func(tx *gorm.DB) error {
			no, err := ledger.NextGatePassNo(tx, storeID, models.PassTypeStorage, body.GatePassNo)
			if err != nil {
				return err
			}

			pass = models.StorageGatePass{
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

			res, err := eng.Allocate(tx, ledger.Consumer{Kind: models.ConsumerKindStorage, ID: pass.ID}, reqs)
			if err != nil {
				return err
			}
			for _, b := range res.Buckets {
				if p := placements[b.Source.Size]; p.weightPerBagKg == 0 {
					p.weightPerBagKg = b.WeightPerBagKg
				}
			}
			pass.Snapshots = res.Snapshots

			pass.Buckets = pass.Buckets[:0]
			for _, size := range sizeOrder {
				p := placements[size]
				bucket := models.StorageBucket{
					StorageGatePassID: pass.ID,
					Size:              size,
					Chamber:           p.chamber,
					Floor:             p.floor,
					Row:               p.row,
					WeightPerBagKg:    p.weightPerBagKg,
					InitialQuantity:   p.quantity,
					CurrentQuantity:   p.quantity,
				}
				if err := tx.Create(&bucket).Error; err != nil {
					return err
				}
				pass.Buckets = append(pass.Buckets, bucket)
			}
			return nil
		})
		if err != nil {
			return fail(c, err)
		}

		_ = audit.WriteLog(audit.LogOptions{
			StoreID:     &storeID,
			ActorName:   "system",
			EntityType:  "storage_gate_pass",
			EntityID:    pass.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Storage gate pass #%d: %d placements", pass.GatePassNo, len(pass.Buckets)),
			After:       pass,
		})

		return ok(c, fiber.StatusCreated, storageToResponse(pass))
	}
}

// GET /api/storage-gate-passes
func ListStorageGatePassesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		var passes []models.StorageGatePass
		err = database.DB.
			Preload("Buckets").
			Preload("Snapshots").
			Where("store_id = ?", storeID).
			Order("gate_pass_no DESC").
			Find(&passes).Error
		if err != nil {
			return fail(c, err)
		}

		resp := make([]StorageGatePassResponse, 0, len(passes))
		for _, p := range passes {
			resp = append(resp, storageToResponse(p))
		}
		return ok(c, fiber.StatusOK, resp)
	}
}

// totalWeightKg over a set of storage buckets, used by the dashboard.
func storageWeightKg(buckets []models.StorageBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(bucketWeightKg(b.WeightPerBagKg, b.CurrentQuantity))
	}
	return total
}
