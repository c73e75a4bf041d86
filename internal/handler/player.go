package handler

import (
	"errors"

	"github.com/driftblend/api/internal/device"
	"github.com/driftblend/api/internal/middleware"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/service"
	"github.com/driftblend/api/internal/spotify"
	"github.com/driftblend/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type PlayerHandler struct {
	service   *service.PlayerService
	validator *validator.Validate
}

func NewPlayerHandler(svc *service.PlayerService, v *validator.Validate) *PlayerHandler {
	return &PlayerHandler{
		service:   svc,
		validator: v,
	}
}

// Play handles POST /api/play
func (h *PlayerHandler) Play(c *fiber.Ctx) error {
	var req model.PlayRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Play(c.Context(), middleware.GetUserID(c), middleware.GetUsername(c), &req)
	if err != nil {
		return playbackError(c, err)
	}

	if req.ReturnEarly {
		return response.Accepted(c, result)
	}
	return response.NoContent(c)
}

// playbackError maps playback failures onto response codes.
func playbackError(c *fiber.Ctx, err error) error {
	if errors.Is(err, device.ErrNoDeviceAvailable) || errors.Is(err, spotify.ErrDeviceUnavailable) {
		return response.NoDevice(c, "No playback device available")
	}
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		return response.UpstreamError(c, apiErr.Message)
	}
	return response.ServiceError(c, err.Error())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
