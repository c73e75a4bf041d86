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

type RadioHandler struct {
	service   *service.RadioService
	validator *validator.Validate
}

func NewRadioHandler(svc *service.RadioService, v *validator.Validate) *RadioHandler {
	return &RadioHandler{
		service:   svc,
		validator: v,
	}
}

// Radio handles POST /api/radio
func (h *RadioHandler) Radio(c *fiber.Ctx) error {
	var req model.RadioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if len(req.ArtistNames)+len(req.GenreNames)+len(req.TrackNames) == 0 {
		return response.ValidationError(c, "At least one seed is required", nil)
	}

	enqueued, result, err := h.service.Radio(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c), &req)
	if err != nil {
		if errors.Is(err, blend.ErrNoTracksGenerated) {
			return response.NoTracks(c, "No tracks could be generated for these seeds")
		}
		return playbackError(c, err)
	}

	if enqueued != nil {
		return response.Accepted(c, enqueued)
	}
	return response.OK(c, result)
}
