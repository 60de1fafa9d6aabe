package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/handoff"
)

type OrderHandler struct {
	Service *handoff.Service
}

type CreateOrderRequest struct {
	CustomerID    string  `json:"customer_id"`
	Amount        int64   `json:"amount"` // minor units
	DeliveryStyle string  `json:"delivery_style"`
	AddressID     string  `json:"address_id"`
	Address       string  `json:"address"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid customer ID"})
	}

	order, err := h.Service.CreateOrder(c.Context(), handoff.CreateOrderRequest{
		CustomerID:    customerID,
		Amount:        req.Amount,
		DeliveryStyle: domain.DeliveryStyle(req.DeliveryStyle),
		AddressID:     req.AddressID,
		AddressText:   req.Address,
		AddressLat:    req.Lat,
		AddressLng:    req.Lng,
	})
	if err != nil {
		return orderError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.Service.GetOrder(c.Context(), orderID)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(order)
}

// AcceptOrder races the calling runner for the order. A lost race is a
// normal outcome, reported as a conflict, not a server error.
func (h *OrderHandler) AcceptOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	runnerID, err := runnerFromContext(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unknown runner"})
	}

	result, err := h.Service.AcceptOrder(c.Context(), orderID, runnerID)
	if err != nil {
		return orderError(c, err)
	}
	if !result.Success {
		return c.Status(http.StatusConflict).JSON(result)
	}
	return c.JSON(result)
}

type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) AdvanceStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	var req AdvanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	order, err := h.Service.AdvanceStatus(c.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) GenerateOTP(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	code, err := h.Service.GenerateOTP(c.Context(), orderID)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(fiber.Map{"code": code})
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

func (h *OrderHandler) VerifyOTP(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Service.VerifyOTP(c.Context(), orderID, req.Code)
	if err != nil {
		return orderError(c, err)
	}
	if !result.Success {
		return c.Status(http.StatusUnprocessableEntity).JSON(result)
	}
	return c.JSON(result)
}

func (h *OrderHandler) MarkArrived(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	result, err := h.Service.MarkArrived(c.Context(), orderID)
	if err != nil {
		return orderError(c, err)
	}
	if !result.Success {
		return c.Status(http.StatusConflict).JSON(result)
	}
	return c.JSON(result)
}

func (h *OrderHandler) ConfirmCount(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	result, err := h.Service.ConfirmCount(c.Context(), orderID)
	if err != nil {
		return orderError(c, err)
	}
	if !result.Success {
		return c.Status(http.StatusConflict).JSON(result)
	}
	return c.JSON(result)
}

type CountIssueRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) ReportCountIssue(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	var req CountIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Reason == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Reason is required"})
	}

	result, err := h.Service.ReportCountIssue(c.Context(), orderID, req.Reason)
	if err != nil {
		return orderError(c, err)
	}
	if !result.Success {
		return c.Status(http.StatusConflict).JSON(result)
	}
	return c.JSON(result)
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	var req CancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	order, err := h.Service.CancelOrder(c.Context(), orderID, req.Reason)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(order)
}

func runnerFromContext(c *fiber.Ctx) (uuid.UUID, error) {
	id, _ := c.Locals("runner_id").(string)
	return uuid.Parse(id)
}

// orderError maps the core's error taxonomy onto HTTP statuses.
func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	case errors.Is(err, domain.ErrNoAtmAvailable):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "No ATM found near this address"})
	case errors.Is(err, domain.ErrInvalidAmount):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be between $100 and $1000"})
	case errors.Is(err, domain.ErrInvalidAddressCoordinates):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Address coordinates are missing or invalid"})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStateMismatch):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		slog.Error("atm directory unavailable", "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "ATM directory is unavailable"})
	default:
		slog.Error("order operation failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}
