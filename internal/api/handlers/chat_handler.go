package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/pipeline"
	"github.com/intentbot/backend/internal/storage/sqlite"
	"github.com/intentbot/backend/pkg/logger"
)

type ChatHandler struct {
	pipeline *pipeline.Pipeline
	store    *sqlite.Client
}

func NewChatHandler(p *pipeline.Pipeline, store *sqlite.Client) *ChatHandler {
	return &ChatHandler{
		pipeline: p,
		store:    store,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message        string `json:"message"`
		UserID         string `json:"user_id"`
		ConversationID string `json:"conversation_id"`
		Name           string `json:"name"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// The validation middleware sanitizes the message; prefer its copy.
	if sanitized, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
		if message, ok := sanitized["message"].(string); ok {
			req.Message = message
		}
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}
	if req.UserID == "" {
		req.UserID = c.IP()
	}

	result := h.pipeline.Process(c.Context(), pipeline.Turn{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Name:           req.Name,
		Transport:      "http",
	})

	return c.JSON(fiber.Map{
		"intent":          result.Intent,
		"state":           result.State,
		"confidence":      result.Confidence,
		"response":        result.Response,
		"conversation_id": result.ConversationID,
		"timestamp":       time.Now().Unix(),
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	if h.store == nil {
		return c.JSON(fiber.Map{"history": []interface{}{}})
	}

	messages, err := h.store.GetHistory(userID, limit)
	if err != nil {
		logger.Error("Failed to load history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": messages,
	})
}
