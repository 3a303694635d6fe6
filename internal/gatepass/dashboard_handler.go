package gatepass

import (
	"coldstore-backend/internal/database"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OverviewResponse struct {
	OpenLots           int64   `json:"openLots"`
	IncomingGatePasses int64   `json:"incomingGatePasses"`
	GradingGatePasses  int64   `json:"gradingGatePasses"`
	StorageGatePasses  int64   `json:"storageGatePasses"`
	NikasiGatePasses   int64   `json:"nikasiGatePasses"`
	BagsReceived       float64 `json:"bagsReceived"`
	BagsGraded         float64 `json:"bagsGraded"`
	BagsUngraded       float64 `json:"bagsUngraded"` // graded but not yet placed/issued
	BagsInStorage      float64 `json:"bagsInStorage"`
	WeightInStorageKg  float64 `json:"weightInStorageKg"`
}

// GET /api/dashboard/overview
// Read-side projection over the ledger; eventually consistent with in-flight
// allocations and fine for display.
func DashboardOverviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := resolveStoreIDFromQuery(c)
		if err != nil {
			return fail(c, err)
		}

		var resp OverviewResponse

		db := database.DB
		if err := db.Model(&models.IncomingGatePass{}).Where("store_id = ?", storeID).Count(&resp.IncomingGatePasses).Error; err != nil {
			return fail(c, err)
		}
		if err := db.Model(&models.IncomingGatePass{}).Where("store_id = ? AND status = ?", storeID, models.LotStatusOpen).Count(&resp.OpenLots).Error; err != nil {
			return fail(c, err)
		}
		if err := db.Model(&models.GradingGatePass{}).Where("store_id = ?", storeID).Count(&resp.GradingGatePasses).Error; err != nil {
			return fail(c, err)
		}
		if err := db.Model(&models.StorageGatePass{}).Where("store_id = ?", storeID).Count(&resp.StorageGatePasses).Error; err != nil {
			return fail(c, err)
		}
		if err := db.Model(&models.NikasiGatePass{}).Where("store_id = ?", storeID).Count(&resp.NikasiGatePasses).Error; err != nil {
			return fail(c, err)
		}

		var totals struct {
			Received float64
			Graded   float64
		}
		err = db.Model(&models.IncomingGatePass{}).
			Where("store_id = ?", storeID).
			Select("COALESCE(SUM(bags_received), 0) AS received, COALESCE(SUM(total_graded_bags), 0) AS graded").
			Scan(&totals).Error
		if err != nil {
			return fail(c, err)
		}
		resp.BagsReceived = totals.Received
		resp.BagsGraded = totals.Graded

		var ungraded float64
		err = db.Model(&models.GradingBucket{}).
			Joins("JOIN grading_gate_passes ON grading_gate_passes.id = grading_buckets.grading_gate_pass_id").
			Where("grading_gate_passes.store_id = ?", storeID).
			Select("COALESCE(SUM(grading_buckets.current_quantity), 0)").
			Scan(&ungraded).Error
		if err != nil {
			return fail(c, err)
		}
		resp.BagsUngraded = ungraded

		var storageBuckets []models.StorageBucket
		err = db.Joins("JOIN storage_gate_passes ON storage_gate_passes.id = storage_buckets.storage_gate_pass_id").
			Where("storage_gate_passes.store_id = ?", storeID).
			Find(&storageBuckets).Error
		if err != nil {
			return fail(c, err)
		}

		bags := decimal.Zero
		for _, b := range storageBuckets {
			bags = bags.Add(decimal.NewFromFloat(b.CurrentQuantity))
		}
		resp.BagsInStorage = bags.InexactFloat64()
		resp.WeightInStorageKg = storageWeightKg(storageBuckets).InexactFloat64()

		return ok(c, fiber.StatusOK, resp)
	}
}
