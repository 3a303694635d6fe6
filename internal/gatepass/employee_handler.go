package gatepass

import (
	"fmt"
	"strings"

	"coldstore-backend/internal/database"
	"coldstore-backend/internal/ledger"
	"coldstore-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateEmployeeRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type EmployeeResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// POST /api/employees
func CreateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fail(c, fmt.Errorf("%w: invalid request body", ledger.ErrInvalidInput))
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fail(c, fmt.Errorf("%w: employee name is required", ledger.ErrInvalidInput))
		}

		emp := models.Employee{Name: body.Name, Role: strings.TrimSpace(body.Role)}
		if err := database.DB.Create(&emp).Error; err != nil {
			return fail(c, err)
		}

		return ok(c, fiber.StatusCreated, EmployeeResponse{ID: emp.ID, Name: emp.Name, Role: emp.Role})
	}
}

// GET /api/employees
func ListEmployeesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var employees []models.Employee
		if err := database.DB.Order("name").Find(&employees).Error; err != nil {
			return fail(c, err)
		}

		resp := make([]EmployeeResponse, 0, len(employees))
		for _, e := range employees {
			resp = append(resp, EmployeeResponse{ID: e.ID, Name: e.Name, Role: e.Role})
		}
		return ok(c, fiber.StatusOK, resp)
	}
}
