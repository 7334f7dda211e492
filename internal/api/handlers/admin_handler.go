package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/pipeline"
	"github.com/intentbot/backend/internal/storage/models"
	"github.com/intentbot/backend/internal/storage/sqlite"
	"github.com/intentbot/backend/internal/training"
	"github.com/intentbot/backend/pkg/logger"
)

// AdminHandler exposes corpus management, retraining and snapshot
// reload. Corpus writes only touch the database; the live snapshot
// changes when a reload (or retrain, which implies one) is requested.
type AdminHandler struct {
	store          *sqlite.Client
	trainer        *training.Trainer
	pipeline       *pipeline.Pipeline
	corpusFallback string
}

func NewAdminHandler(store *sqlite.Client, trainer *training.Trainer, p *pipeline.Pipeline, corpusFallback string) *AdminHandler {
	return &AdminHandler{
		store:          store,
		trainer:        trainer,
		pipeline:       p,
		corpusFallback: corpusFallback,
	}
}

func (h *AdminHandler) ListIntents(c *fiber.Ctx) error {
	intents, err := h.store.ListIntents()
	if err != nil {
		logger.Error("Failed to list intents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list intents",
		})
	}

	return c.JSON(fiber.Map{
		"intents": intents,
		"count":   len(intents),
	})
}

func (h *AdminHandler) GetIntent(c *fiber.Ctx) error {
	tag := c.Params("tag")

	intent, err := h.store.GetIntent(tag)
	if err != nil {
		if errors.Is(err, sqlite.ErrIntentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Intent not found",
			})
		}
		logger.Error("Failed to get intent", zap.String("tag", tag), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get intent",
		})
	}

	return c.JSON(intent)
}

func (h *AdminHandler) CreateIntent(c *fiber.Ctx) error {
	var req struct {
		Tag       string   `json:"tag"`
		Patterns  []string `json:"patterns"`
		Responses []string `json:"responses"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	intent := &models.Intent{
		Tag:       req.Tag,
		Patterns:  req.Patterns,
		Responses: req.Responses,
	}
	if err := h.store.CreateIntent(intent); err != nil {
		logger.Error("Failed to create intent", zap.String("tag", req.Tag), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(intent)
}

func (h *AdminHandler) UpdateIntent(c *fiber.Ctx) error {
	tag := c.Params("tag")

	var req struct {
		Patterns  []string `json:"patterns"`
		Responses []string `json:"responses"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.store.UpdateIntent(tag, req.Patterns, req.Responses); err != nil {
		if errors.Is(err, sqlite.ErrIntentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Intent not found",
			})
		}
		logger.Error("Failed to update intent", zap.String("tag", tag), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "updated", "tag": tag})
}

func (h *AdminHandler) DeleteIntent(c *fiber.Ctx) error {
	tag := c.Params("tag")

	if err := h.store.DeleteIntent(tag); err != nil {
		if errors.Is(err, sqlite.ErrIntentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Intent not found",
			})
		}
		logger.Error("Failed to delete intent", zap.String("tag", tag), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete intent",
		})
	}

	return c.JSON(fiber.Map{"status": "deleted", "tag": tag})
}

// Retrain fits fresh artifacts from the current corpus tables, then
// reloads the snapshot so the new model serves immediately.
func (h *AdminHandler) Retrain(c *fiber.Ctx) error {
	snapshot, err := corpus.Load(h.store, h.corpusFallback)
	if err != nil {
		logger.Error("Failed to load corpus for training", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load corpus",
		})
	}

	report, err := h.trainer.Train(snapshot)
	if err != nil {
		logger.Error("Training failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Training failed",
		})
	}

	if err := h.pipeline.Reload(c.Context()); err != nil {
		logger.Error("Snapshot reload after training failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Trained but failed to reload snapshot",
		})
	}

	return c.JSON(fiber.Map{
		"status":      "retrained",
		"version":     report.Version,
		"intents":     report.Intents,
		"patterns":    report.Patterns,
		"features":    report.Features,
		"duration_ms": report.Duration.Milliseconds(),
	})
}

// Reload republishes the snapshot from the corpus tables and whatever
// artifacts are on disk, without retraining.
func (h *AdminHandler) Reload(c *fiber.Ctx) error {
	if err := h.pipeline.Reload(c.Context()); err != nil {
		logger.Error("Snapshot reload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reload snapshot",
		})
	}

	return c.JSON(fiber.Map{"status": "reloaded"})
}
