package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/metrics"
	"github.com/intentbot/backend/internal/pipeline"
	"github.com/intentbot/backend/pkg/logger"
)

type WebSocketHandler struct {
	pipeline *pipeline.Pipeline
}

func NewWebSocketHandler(p *pipeline.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: p,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	metrics.ActiveWebsockets.Inc()

	defer func() {
		c.Close()
		metrics.ActiveWebsockets.Dec()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type           string `json:"type"`
			Content        string `json:"content"`
			UserID         string `json:"user_id"`
			ConversationID string `json:"conversation_id"`
			Name           string `json:"name"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "message" {
			continue
		}
		if msg.Content == "" {
			h.sendError(c, "Message content is required")
			continue
		}

		result := h.pipeline.Process(context.Background(), pipeline.Turn{
			UserID:         msg.UserID,
			ConversationID: msg.ConversationID,
			Message:        msg.Content,
			Name:           msg.Name,
			Transport:      "websocket",
		})

		err = c.WriteJSON(map[string]interface{}{
			"type":            "reply",
			"intent":          result.Intent,
			"state":           result.State,
			"confidence":      result.Confidence,
			"response":        result.Response,
			"conversation_id": result.ConversationID,
		})
		if err != nil {
			logger.Error("Failed to write WebSocket reply", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
