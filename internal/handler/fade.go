package handler

import (
	"github.com/driftblend/api/internal/middleware"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/service"
	"github.com/driftblend/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type FadeHandler struct {
	service   *service.FadeService
	validator *validator.Validate
}

func NewFadeHandler(svc *service.FadeService, v *validator.Validate) *FadeHandler {
	return &FadeHandler{
		service:   svc,
		validator: v,
	}
}

// Fade handles POST /api/fade
func (h *FadeHandler) Fade(c *fiber.Ctx) error {
	var req model.FadeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Fade(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c), &req)
	if err != nil {
		return playbackError(c, err)
	}

	if req.ReturnEarly {
		return response.Accepted(c, result)
	}
	return response.NoContent(c)
}
