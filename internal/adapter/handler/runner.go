package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/adapter/storage"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/security"
)

type RunnerHandler struct {
	Repo *storage.RunnerRepository
}

type CreateRunnerRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (h *RunnerHandler) CreateRunner(c *fiber.Ctx) error {
	var req CreateRunnerRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid runner body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.FullName == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Full name is required"})
	}
	if len(req.Phone) < 10 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid phone number"})
	}

	runner, err := h.Repo.CreateRunner(c.Context(), req.FullName, req.Phone)
	if err != nil {
		slog.Error("Failed to create runner", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create runner"})
	}

	slog.Info("runner registered", "id", runner.ID)
	return c.Status(http.StatusCreated).JSON(runner)
}

// GenerateKey mints a runner API key. The raw key is returned once and
// never stored.
func (h *RunnerHandler) GenerateKey(c *fiber.Ctx) error {
	runnerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid runner ID format"})
	}

	realKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		slog.Error("Crypto error generating key", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Crypto error"})
	}

	if err := h.Repo.SaveAPIKey(c.Context(), runnerID, keyHash, "bj_live_"); err != nil {
		slog.Error("Failed to save API key", "error", err, "runner_id", runnerID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save key"})
	}

	slog.Info("API key generated", "runner_id", runnerID)
	return c.JSON(fiber.Map{
		"api_key": realKey,
		"warning": "Save this now! We won't show it again.",
	})
}
