package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/bot"
	"github.com/sllt-wei/plugin-summary/internal/ingest"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// MessageHandler exposes the pipeline over the host-runtime HTTP boundary.
type MessageHandler struct {
	handler *bot.Handler
	meta    repository.SessionMetaRepository
	logger  *logrus.Logger
}

// NewMessageHandler creates the HTTP handler set.
func NewMessageHandler(handler *bot.Handler, meta repository.SessionMetaRepository, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{handler: handler, meta: meta, logger: logger}
}

// HandleMessage accepts one inbound message and returns the reply pair, if
// any. Image payloads are serialized as base64 by the JSON encoder.
func (h *MessageHandler) HandleMessage(c *fiber.Ctx) error {
	var msg ingest.Message
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message payload",
		})
	}
	if msg.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	r, err := h.handler.HandleMessage(c.Context(), msg)
	if err != nil {
		h.logger.WithError(err).Error("message handling failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}
	if r == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(r)
}

// EnableSession clears the disabled flag for a session.
func (h *MessageHandler) EnableSession(c *fiber.Ctx) error {
	return h.setDisabled(c, false)
}

// DisableSession sets the disabled flag for a session.
func (h *MessageHandler) DisableSession(c *fiber.Ctx) error {
	return h.setDisabled(c, true)
}

func (h *MessageHandler) setDisabled(c *fiber.Ctx, disabled bool) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session id is required",
		})
	}
	if err := h.meta.SetDisabled(c.Context(), sessionID, disabled); err != nil {
		h.logger.WithField("session_id", sessionID).WithError(err).Error("failed to toggle disabled flag")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"disabled":   disabled,
	})
}

// Help returns the command usage text.
func (h *MessageHandler) Help(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"help": h.handler.Help()})
}
