package handler

import (
	"errors"

	"github.com/driftblend/api/internal/blend"
	"github.com/driftblend/api/internal/middleware"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/service"
	"github.com/driftblend/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type BlendHandler struct {
	service   *service.BlendService
	validator *validator.Validate
}

func NewBlendHandler(svc *service.BlendService, v *validator.Validate) *BlendHandler {
	return &BlendHandler{
		service:   svc,
		validator: v,
	}
}

// Blend handles POST /api/blend
func (h *BlendHandler) Blend(c *fiber.Ctx) error {
	var req model.BlendRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if _, ok := blend.Profiles[req.BlendID]; !ok {
		return response.NotFound(c, "Unknown blend")
	}

	enqueued, result, err := h.service.Blend(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c), &req)
	if err != nil {
		if errors.Is(err, blend.ErrNoTracksGenerated) {
			return response.NoTracks(c, "No tracks could be generated for this blend")
		}
		return playbackError(c, err)
	}

	if enqueued != nil {
		return response.Accepted(c, enqueued)
	}
	return response.OK(c, result)
}
