package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/atm"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

type AtmHandler struct {
	Selector *atm.Selector
}

type SelectAtmRequest struct {
	AddressID string  `json:"address_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// SelectAtm runs the selector directly, mainly for ops tooling and the
// admin dashboard.
func (h *AtmHandler) SelectAtm(c *fiber.Ctx) error {
	var req SelectAtmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Selector.SelectBestForAddress(c.Context(), atm.SelectionRequest{
		AddressID: req.AddressID,
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAddressCoordinates):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Address coordinates are missing or invalid"})
		case errors.Is(err, domain.ErrDirectoryUnavailable):
			slog.Error("atm directory unavailable", "error", err)
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "ATM directory is unavailable"})
		default:
			slog.Error("atm selection failed", "error", err)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
		}
	}
	if result == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "No ATM found near this address"})
	}

	return c.JSON(result)
}
