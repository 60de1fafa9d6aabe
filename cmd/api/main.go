package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/adapter/handler"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/adapter/middleware"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/adapter/storage"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/atm"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/config"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/handoff"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}

	// Repos
	atmRepo := storage.NewAtmRepository(dbPool)
	prefRepo := storage.NewPreferenceRepository(dbPool)
	orderRepo := storage.NewOrderRepository(dbPool)
	runnerRepo := storage.NewRunnerRepository(dbPool)
	webhookQueue := storage.NewWebhookQueue(dbPool, cfg.WebhookURL)

	// Core services
	classifier := atm.NewClassifier(atm.DefaultKeywords())
	selector := atm.NewSelector(atmRepo, prefRepo, classifier)
	orders := handoff.NewService(orderRepo, selector, webhookQueue)

	// Handlers
	atmHandler := &handler.AtmHandler{Selector: selector}
	orderHandler := &handler.OrderHandler{Service: orders}
	runnerHandler := &handler.RunnerHandler{Repo: runnerRepo}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/v1")

	// Public
	api.Post("/runners", runnerHandler.CreateRunner)
	api.Post("/runners/:id/keys", runnerHandler.GenerateKey)

	// Protected
	private := api.Use(middleware.Protected(dbPool))
	private.Post("/atm/select", atmHandler.SelectAtm)
	private.Post("/orders", middleware.Idempotency(dbPool), orderHandler.CreateOrder)
	private.Get("/orders/:id", orderHandler.GetOrder)
	private.Post("/orders/:id/accept", orderHandler.AcceptOrder)
	private.Post("/orders/:id/status", orderHandler.AdvanceStatus)
	private.Post("/orders/:id/otp", orderHandler.GenerateOTP)
	private.Post("/orders/:id/verify-otp", middleware.Idempotency(dbPool), orderHandler.VerifyOTP)
	private.Post("/orders/:id/arrived", orderHandler.MarkArrived)
	private.Post("/orders/:id/confirm-count", orderHandler.ConfirmCount)
	private.Post("/orders/:id/count-issue", orderHandler.ReportCountIssue)
	private.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	worker.StartWebhookWorker(dbPool, cfg.WebhookSecret)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("Server exited")
}
