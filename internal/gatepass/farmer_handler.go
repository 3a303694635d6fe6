package gatepass

import (
	"fmt"
	"strings"

	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateFarmerRequest struct {
	Name       string `json:"name"`
	Village    string `json:"village"`
	FatherName string `json:"fatherName"` // S/O
	Phone      string `json:"phone"`
}

type FarmerResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Village    string `json:"village"`
	FatherName string `json:"fatherName"`
	Phone      string `json:"phone"`
}

func farmerToResponse(f models.Farmer) FarmerResponse {
	return FarmerResponse{
		ID:         f.ID,
		Name:       f.Name,
		Village:    f.Village,
		FatherName: f.FatherName,
		Phone:      f.Phone,
	}
}

// POST /api/farmers
func CreateFarmerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateFarmerRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fail(c, fmt.Errorf("%w: farmer name is required", ledger.ErrInvalidInput))
		}

		farmer := models.Farmer{
			Name:       body.Name,
			Village:    strings.TrimSpace(body.Village),
			FatherName: strings.TrimSpace(body.FatherName),
			Phone:      strings.TrimSpace(body.Phone),
		}
		if err := database.DB.Create(&farmer).Error; err != nil {
			return fail(c, err)
		}

		return ok(c, fiber.StatusCreated, farmerToResponse(farmer))
	}
}

// GET /api/farmers?q=ram
func ListFarmersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Farmer{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("name LIKE ? OR village LIKE ? OR phone LIKE ?", like, like, like)
		}

		var farmers []models.Farmer
		if err := dbq.Order("name").Find(&farmers).Error; err != nil {
			return fail(c, err)
		}

		resp := make([]FarmerResponse, 0, len(farmers))
		for _, f := range farmers {
			resp = append(resp, farmerToResponse(f))
		}
		return ok(c, fiber.StatusOK, resp)
	}
}
