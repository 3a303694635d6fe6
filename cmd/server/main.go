package main

import (
	"log"
	"strings"

	"coldstore-backend/internal/audit"
	"coldstore-backend/internal/config"
	"coldstore-backend/internal/database"
	"coldstore-backend/internal/gatepass"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/metrics"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	eng := ledger.NewEngine(database.DB, cfg.AllocateMaxRetries)

	nikasiSource := models.BucketKindStorage
	if cfg.NikasiSource == "grading" {
		nikasiSource = models.BucketKindGrading
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"success": false,
					"data":    nil,
					"message": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"data":    nil,
				"message": "Unexpected server error",
			})
		},
	})

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Registries
	api.Post("/farmers", gatepass.CreateFarmerHandler())
	api.Get("/farmers", gatepass.ListFarmersHandler())
	api.Post("/employees", gatepass.CreateEmployeeHandler())
	api.Get("/employees", gatepass.ListEmployeesHandler())

	// Incoming (lot intake)
	api.Post("/incoming-gate-passes", gatepass.CreateIncomingGatePassHandler(eng))
	api.Get("/incoming-gate-passes", gatepass.ListIncomingGatePassesHandler())
	api.Get("/incoming-gate-passes/:id", gatepass.GetIncomingGatePassHandler())
	api.Post("/incoming-gate-passes/:id/close", gatepass.CloseIncomingGatePassHandler())

	// Grading
	api.Post("/grading-gate-passes", gatepass.CreateGradingGatePassHandler(eng))
	api.Get("/grading-gate-passes", gatepass.ListGradingGatePassesHandler())
	api.Get("/grading-gate-passes/:id/buckets", gatepass.GetGradingBucketsHandler())

	// Storage
	api.Post("/storage-gate-passes", gatepass.CreateStorageGatePassHandler(eng))
	api.Get("/storage-gate-passes", gatepass.ListStorageGatePassesHandler())

	// Nikasi (outgoing)
	api.Post("/nikasi-gate-passes", gatepass.CreateNikasiGatePassHandler(eng, nikasiSource))
	api.Get("/nikasi-gate-passes", gatepass.ListNikasiGatePassesHandler())

	// Allocation lineage and releases
	api.Post("/allocations/:id/release", gatepass.ReleaseAllocationHandler(eng))
	api.Get("/allocations", gatepass.ListAllocationsHandler())
	api.Get("/gate-passes/next-number", gatepass.NextGatePassNumberHandler())

	// Dashboard
	api.Get("/dashboard/overview", gatepass.DashboardOverviewHandler())

	// Audit trail
	api.Get("/audit-logs", audit.ListAuditLogsHandler())

	app.Get("/metrics", metrics.Handler())

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
