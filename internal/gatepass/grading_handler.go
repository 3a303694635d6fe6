package gatepass

import (
	"errors"
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

type GradingOrderDetailRequest struct {
	Size            string  `json:"size"`
	BagType         string  `json:"bagType"`
	CurrentQuantity float64 `json:"currentQuantity"` // sent by the form, always reset to initialQuantity
	InitialQuantity float64 `json:"initialQuantity"`
	WeightPerBagKg  float64 `json:"weightPerBagKg"`
}

type CreateGradingGatePassRequest struct {
	StoreID              *uint                       `json:"storeId"`
	IncomingGatePassID   uint                        `json:"incomingGatePassId"`
	GradedByID           uint                        `json:"gradedById"`
	GatePassNo           int64                       `json:"gatePassNo"`
	Date                 string                      `json:"date"`
	Variety              string                      `json:"variety"`
	OrderDetails         []GradingOrderDetailRequest `json:"orderDetails"`
	AllocationStatus     string                      `json:"allocationStatus"` // advisory; recomputed from buckets
	Remarks              string                      `json:"remarks"`
	ManualGatePassNumber string                      `json:"manualGatePassNumber"`
}

type GradingBucketResponse struct {
	Size            string  `json:"size"`
	BagType         string  `json:"bagType"`
	InitialQuantity float64 `json:"initialQuantity"`
	CurrentQuantity float64 `json:"currentQuantity"`
	WeightPerBagKg  float64 `json:"weightPerBagKg"`
	TotalWeightKg   float64 `json:"totalWeightKg"`
}

type GradingGatePassResponse struct {
	ID                   uint                    `json:"id"`
	GatePassNo           int64                   `json:"gatePassNo"`
	IncomingGatePassID   uint                    `json:"incomingGatePassId"`
	GradedByID           uint                    `json:"gradedById"`
	GradedByName         string                  `json:"gradedByName,omitempty"`
	Date                 string                  `json:"date"`
	Variety              string                  `json:"variety"`
	AllocationStatus     models.AllocationStatus `json:"allocationStatus"`
	OrderDetails         []GradingBucketResponse `json:"orderDetails"`
	TotalBags            float64                 `json:"totalBags"`
	TotalWeightKg        float64                 `json:"totalWeightKg"`
	ManualGatePassNumber string                  `json:"manualGatePassNumber,omitempty"`
	Remarks              string                  `json:"remarks,omitempty"`
	IncomingGatePass     *IncomingGatePassResponse `json:"incomingGatePass,omitempty"`
}

// bucketWeightKg computes weightPerBagKg × bags without float drift; the
// printed pass totals must add up exactly.
func bucketWeightKg(weightPerBag, bags float64) decimal.Decimal {
	return decimal.NewFromFloat(weightPerBag).Mul(decimal.NewFromFloat(bags))
}

func gradingToResponse(p models.GradingGatePass, incoming *models.IncomingGatePass) GradingGatePassResponse {
	resp := GradingGatePassResponse{
		ID:                   p.ID,
		GatePassNo:           p.GatePassNo,
		IncomingGatePassID:   p.IncomingGatePassID,
		GradedByID:           p.GradedByID,
		GradedByName:         p.GradedBy.Name,
		Date:                 p.Date.Format("2006-01-02"),
		Variety:              p.Variety,
		AllocationStatus:     p.AllocationStatus,
		ManualGatePassNumber: p.ManualGatePassNumber,
		Remarks:              p.Remarks,
	}

	totalWeight := decimal.Zero
	for _, b := range p.Buckets {
		w := bucketWeightKg(b.WeightPerBagKg, b.InitialQuantity)
		totalWeight = totalWeight.Add(w)
		resp.TotalBags += b.InitialQuantity
		resp.OrderDetails = append(resp.OrderDetails, GradingBucketResponse{
			Size:            b.Size,
			BagType:         b.BagType,
			InitialQuantity: b.InitialQuantity,
			CurrentQuantity: b.CurrentQuantity,
			WeightPerBagKg:  b.WeightPerBagKg,
			TotalWeightKg:   w.InexactFloat64(),
		})
	}
	resp.TotalWeightKg = totalWeight.InexactFloat64()

	if incoming != nil {
		r := incomingToResponse(*incoming)
		resp.IncomingGatePass = &r
	}
	return resp
}

// POST /api/grading-gate-passes
func CreateGradingGatePassHandler(eng *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateGradingGatePassRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		if len(body.OrderDetails) == 0 {
			return fail(c, fmt.Errorf("%w: at least one order detail is required", ledger.ErrInvalidInput))
		}
		seen := make(map[string]bool, len(body.OrderDetails))
		for _, d := range body.OrderDetails {
			if strings.TrimSpace(d.Size) == "" {
				return fail(c, fmt.Errorf("%w: size is required on every order detail", ledger.ErrInvalidInput))
			}
			if d.InitialQuantity <= 0 {
				return fail(c, fmt.Errorf("%w: initialQuantity must be positive for size %s, got %g", ledger.ErrInvalidInput, d.Size, d.InitialQuantity))
			}
			if d.WeightPerBagKg < 0 {
				return fail(c, fmt.Errorf("%w: weightPerBagKg cannot be negative for size %s", ledger.ErrInvalidInput, d.Size))
			}
			if seen[d.Size] {
				return fail(c, fmt.Errorf("%w: duplicate size %s in order details", ledger.ErrInvalidInput, d.Size))
			}
			seen[d.Size] = true
		}

		date, err := parseDate(body.Date)
		if err != nil {
			return fail(c, err)
		}

		storeID, err := resolveStoreID(body.StoreID)
		if err != nil {
			return fail(c, err)
		}

		var gradedBy models.Employee
		err = database.DB.First(&gradedBy, "id = ?", body.GradedByID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: employee %d", ledger.ErrNotFound, body.GradedByID))
		}
		if err != nil {
			return fail(c, err)
		}

		var pass models.GradingGatePass
		err = eng.WithRetry(c.Context(), func(tx *gorm.DB) error {
			var lot models.IncomingGatePass
			err := tx.First(&lot, "id = ?", body.IncomingGatePassID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: incoming gate pass %d", ledger.ErrNotFound, body.IncomingGatePassID)
			}
			if err != nil {
				return err
			}
			if lot.Status == models.LotStatusClosed {
				return fmt.Errorf("%w: incoming gate pass %d is closed", ledger.ErrInvalidInput, lot.ID)
			}

			no, err := ledger.NextGatePassNo(tx, storeID, models.PassTypeGrading, body.GatePassNo)
			if err != nil {
				return err
			}

			pass = models.GradingGatePass{
				StoreID:              storeID,
				GatePassNo:           no,
				IncomingGatePassID:   lot.ID,
				GradedByID:           gradedBy.ID,
				Date:                 date,
				Variety:              strings.TrimSpace(body.Variety),
				AllocationStatus:     models.AllocationStatusUnallocated,
				ManualGatePassNumber: strings.TrimSpace(body.ManualGatePassNumber),
				Remarks:              body.Remarks,
			}
			totalGraded := 0.0
			for _, d := range body.OrderDetails {
				totalGraded += d.InitialQuantity
				pass.Buckets = append(pass.Buckets, models.GradingBucket{
					Size:            strings.TrimSpace(d.Size),
					BagType:         strings.TrimSpace(d.BagType),
					WeightPerBagKg:  d.WeightPerBagKg,
					InitialQuantity: d.InitialQuantity,
					CurrentQuantity: d.InitialQuantity,
				})
			}
			if err := tx.Create(&pass).Error; err != nil {
				return err
			}

			return tx.Model(&lot).
				Update("total_graded_bags", gorm.Expr("total_graded_bags + ?", totalGraded)).Error
		})
		if err != nil {
			return fail(c, err)
		}
		pass.GradedBy = gradedBy

		_ = audit.WriteLog(audit.LogOptions{
			StoreID:     &storeID,
			ActorID:     gradedBy.ID,
			ActorName:   gradedBy.Name,
			EntityType:  "grading_gate_pass",
			EntityID:    pass.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Grading gate pass #%d: %d sizes for incoming pass %d", pass.GatePassNo, len(pass.Buckets), pass.IncomingGatePassID),
			After:       pass,
		})

		return ok(c, fiber.StatusCreated, gradingToResponse(pass, nil))
	}
}

// GET /api/grading-gate-passes
func ListGradingGatePassesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		var passes []models.GradingGatePass
		err = database.DB.
			Preload("Buckets").
			Preload("GradedBy").
			Preload("IncomingGatePass").
			Preload("IncomingGatePass.Farmer").
			Where("store_id = ?", storeID).
			Order("gate_pass_no DESC").
			Find(&passes).Error
		if err != nil {
			return fail(c, err)
		}

		resp := make([]GradingGatePassResponse, 0, len(passes))
		for _, p := range passes {
			incoming := p.IncomingGatePass
			resp = append(resp, gradingToResponse(p, &incoming))
		}
		return ok(c, fiber.StatusOK, resp)
	}
}

// GET /api/grading-gate-passes/:id/buckets
// Live balances for the allocation widgets.
func GetGradingBucketsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		var pass models.GradingGatePass
		err = database.DB.Preload("Buckets").First(&pass, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: grading gate pass %d", ledger.ErrNotFound, id))
		}
		if err != nil {
			return fail(c, err)
		}

		resp := make([]GradingBucketResponse, 0, len(pass.Buckets))
		for _, b := range pass.Buckets {
			resp = append(resp, GradingBucketResponse{
				Size:            b.Size,
				BagType:         b.BagType,
				InitialQuantity: b.InitialQuantity,
				CurrentQuantity: b.CurrentQuantity,
				WeightPerBagKg:  b.WeightPerBagKg,
				TotalWeightKg:   bucketWeightKg(b.WeightPerBagKg, b.CurrentQuantity).InexactFloat64(),
			})
		}
		return ok(c, fiber.StatusOK, resp)
	}
}
