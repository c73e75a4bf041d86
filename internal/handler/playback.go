package handler

import (
	"context"

	"github.com/driftblend/api/internal/middleware"
	"github.com/driftblend/api/internal/service"
	"github.com/driftblend/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type PlaybackHandler struct {
	service *service.PlaybackService
}

func NewPlaybackHandler(svc *service.PlaybackService) *PlaybackHandler {
	return &PlaybackHandler{service: svc}
}

// Snapshot handles GET /api/playback
func (h *PlaybackHandler) Snapshot(c *fiber.Ctx) error {
	result, err := h.service.Snapshot(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c))
	if err != nil {
		return playbackError(c, err)
	}
	return response.OK(c, result)
}

// Pause handles POST /api/pause
func (h *PlaybackHandler) Pause(c *fiber.Ctx) error {
	return h.control(c, h.service.Pause)
}

// Next handles POST /api/next
func (h *PlaybackHandler) Next(c *fiber.Ctx) error {
	return h.control(c, h.service.Next)
}

// Previous handles POST /api/previous
func (h *PlaybackHandler) Previous(c *fiber.Ctx) error {
	return h.control(c, h.service.Previous)
}

func (h *PlaybackHandler) control(c *fiber.Ctx, call func(ctx context.Context, userID, username, device string) error) error {
	if err := call(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c), c.Query("device")); err != nil {
		return playbackError(c, err)
	}
	return response.NoContent(c)
}
