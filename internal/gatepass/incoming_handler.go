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
	"gorm.io/gorm"
)

type CreateIncomingGatePassRequest struct {
	StoreID              *uint   `json:"storeId"`
	GatePassNo           int64   `json:"gatePassNo"` // 0 = let the counter issue one
	FarmerID             uint    `json:"farmerId"`
	Variety              string  `json:"variety"`
	TruckNumber          string  `json:"truckNumber"`
	BagsReceived         float64 `json:"bagsReceived"`
	ManualGatePassNumber string  `json:"manualGatePassNumber"`
	Remarks              string  `json:"remarks"`
}

type GradingSummary struct {
	TotalGradedBags float64 `json:"totalGradedBags"`
}

type IncomingGatePassResponse struct {
	ID                   uint             `json:"id"`
	StoreID              uint             `json:"storeId"`
	GatePassNo           int64            `json:"gatePassNo"`
	Farmer               FarmerResponse   `json:"farmer"`
	Variety              string           `json:"variety"`
	TruckNumber          string           `json:"truckNumber"`
	BagsReceived         float64          `json:"bagsReceived"`
	Status               models.LotStatus `json:"status"`
	GradingSummary       GradingSummary   `json:"gradingSummary"`
	ManualGatePassNumber string           `json:"manualGatePassNumber,omitempty"`
	Remarks              string           `json:"remarks,omitempty"`
	CreatedAt            string           `json:"createdAt"`
}

func incomingToResponse(p models.IncomingGatePass) IncomingGatePassResponse {
	return IncomingGatePassResponse{
		ID:                   p.ID,
		StoreID:              p.StoreID,
		GatePassNo:           p.GatePassNo,
		Farmer:               farmerToResponse(p.Farmer),
		Variety:              p.Variety,
		TruckNumber:          p.TruckNumber,
		BagsReceived:         p.BagsReceived,
		Status:               p.Status,
		GradingSummary:       GradingSummary{TotalGradedBags: p.TotalGradedBags},
		ManualGatePassNumber: p.ManualGatePassNumber,
		Remarks:              p.Remarks,
		CreatedAt:            p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/incoming-gate-passes
func CreateIncomingGatePassHandler(eng *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIncomingGatePassRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		if body.BagsReceived <= 0 {
			return fail(c, fmt.Errorf("%w: bagsReceived must be positive, got %g", ledger.ErrInvalidInput, body.BagsReceived))
		}
		if strings.TrimSpace(body.Variety) == "" {
			return fail(c, fmt.Errorf("%w: variety is required", ledger.ErrInvalidInput))
		}

		storeID, err := resolveStoreID(body.StoreID)
		if err != nil {
			return fail(c, err)
		}

		var farmer models.Farmer
		err = database.DB.First(&farmer, "id = ?", body.FarmerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: farmer %d", ledger.ErrNotFound, body.FarmerID))
		}
		if err != nil {
			return fail(c, err)
		}

		var pass models.IncomingGatePass
		err = eng.WithRetry(c.Context(), func(tx *gorm.DB) error {
			no, err := ledger.NextGatePassNo(tx, storeID, models.PassTypeIncoming, body.GatePassNo)
			if err != nil {
				return err
			}

			pass = models.IncomingGatePass{
				StoreID:              storeID,
				GatePassNo:           no,
				FarmerID:             farmer.ID,
				Variety:              strings.TrimSpace(body.Variety),
				TruckNumber:          strings.TrimSpace(body.TruckNumber),
				BagsReceived:         body.BagsReceived,
				Status:               models.LotStatusOpen,
				ManualGatePassNumber: strings.TrimSpace(body.ManualGatePassNumber),
				Remarks:              body.Remarks,
			}
			return tx.Create(&pass).Error
		})
		if err != nil {
			return fail(c, err)
		}
		pass.Farmer = farmer

		_ = audit.WriteLog(audit.LogOptions{
			StoreID:     &storeID,
			ActorName:   "system",
			EntityType:  "incoming_gate_pass",
			EntityID:    pass.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Incoming gate pass #%d: %s, %g bags from %s", pass.GatePassNo, pass.Variety, pass.BagsReceived, farmer.Name),
			After:       pass,
		})

		return ok(c, fiber.StatusCreated, incomingToResponse(pass))
	}
}

// GET /api/incoming-gate-passes?status=OPEN
func ListIncomingGatePassesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		dbq := database.DB.Preload("Farmer").Where("store_id = ?", storeID)
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var passes []models.IncomingGatePass
		if err := dbq.Order("gate_pass_no DESC").Find(&passes).Error; err != nil {
			return fail(c, err)
		}

		resp := make([]IncomingGatePassResponse, 0, len(passes))
		for _, p := range passes {
			resp = append(resp, incomingToResponse(p))
		}
		return ok(c, fiber.StatusOK, resp)
	}
}

// GET /api/incoming-gate-passes/:id
func GetIncomingGatePassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		var pass models.IncomingGatePass
		err = database.DB.Preload("Farmer").First(&pass, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: incoming gate pass %d", ledger.ErrNotFound, id))
		}
		if err != nil {
			return fail(c, err)
		}

		return ok(c, fiber.StatusOK, incomingToResponse(pass))
	}
}

// POST /api/incoming-gate-passes/:id/close
func CloseIncomingGatePassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		var pass models.IncomingGatePass
		err = database.DB.Preload("Farmer").First(&pass, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: incoming gate pass %d", ledger.ErrNotFound, id))
		}
		if err != nil {
			return fail(c, err)
		}
		if pass.Status == models.LotStatusClosed {
			return fail(c, fmt.Errorf("%w: incoming gate pass %d is already closed", ledger.ErrInvalidInput, id))
		}

		before := pass.Status
		pass.Status = models.LotStatusClosed
		if err := database.DB.Model(&pass).Update("status", models.LotStatusClosed).Error; err != nil {
			return fail(c, err)
		}

		_ = audit.WriteLog(audit.LogOptions{
			StoreID:     &pass.StoreID,
			ActorName:   "system",
			EntityType:  "incoming_gate_pass",
			EntityID:    pass.ID,
			Action:      models.AuditActionClose,
			Description: fmt.Sprintf("Incoming gate pass #%d closed", pass.GatePassNo),
			Before:      before,
			After:       pass.Status,
		})

		return ok(c, fiber.StatusOK, incomingToResponse(pass))
	}
}
