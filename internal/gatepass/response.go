package gatepass

import (
	"errors"
	"fmt"
	"log"
	"time"

	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Response is the envelope every /api endpoint answers with. The UI keys its
// toast/error display off Success and Message, so the shape is fixed:
// success=false always travels with data=null and a human-readable message.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Response{Success: true, Data: data})
}

// fail maps the ledger error taxonomy onto HTTP codes. Anything outside the
// taxonomy is an internal failure: logged with detail, surfaced generic.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Unexpected server error"

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, ledger.ErrInvalidInput):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, ledger.ErrInsufficientQuantity):
		status = fiber.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, ledger.ErrConflict):
		status = fiber.StatusConflict
		message = err.Error()
	default:
		log.Println("Unexpected error:", err)
	}

	return c.Status(status).JSON(Response{Success: false, Data: nil, Message: message})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params(name), &id); err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", ledger.ErrInvalidInput, name)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be 'YYYY-MM-DD'", ledger.ErrInvalidInput)
	}
	return d, nil
}

// resolveStoreID picks the store a request operates on: explicit storeId if
// given, otherwise the first (default) store.
func resolveStoreID(requested *uint) (uint, error) {
	if requested != nil && *requested > 0 {
		var store models.Store
		err := database.DB.First(&store, "id = ?", *requested).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: store %d", ledger.ErrNotFound, *requested)
		}
		if err != nil {
			return 0, err
		}
		return store.ID, nil
	}

	var store models.Store
	if err := database.DB.Order("id").First(&store).Error; err != nil {
		return 0, fmt.Errorf("no store configured: %w", err)
	}
	return store.ID, nil
}

func resolveStoreIDFromQuery(c *fiber.Ctx) (uint, error) {
	if sidStr := c.Query("store_id"); sidStr != "" {
		var sid uint
		if _, err := fmt.Sscan(sidStr, &sid); err != nil || sid == 0 {
			return 0, fmt.Errorf("%w: invalid store_id", ledger.ErrInvalidInput)
		}
		return resolveStoreID(&sid)
	}
	return resolveStoreID(nil)
}
