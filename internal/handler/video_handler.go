package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/teacherflow/api/internal/model"
	"github.com/teacherflow/api/internal/service"
	"github.com/teacherflow/api/pkg/response"
)

type VideoHandler struct {
	service   *service.VideoService
	validator *validator.Validate
}

func NewVideoHandler(svc *service.VideoService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /generate-video: fire-and-forget acceptance of a
// video generation job. Downstream failures are visible only by polling.
func (h *VideoHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartGeneration(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /job-status/:jobId
func (h *VideoHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Delete handles POST|DELETE /delete/videos
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	var req model.DeleteVideosRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	results := h.service.DeleteVideos(req.Filenames)
	return response.OK(c, fiber.Map{"results": results})
}

func formatValidationErrors(err error) []fiber.Map {
	var details []fiber.Map
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			details = append(details, fiber.Map{
				"field": fieldErr.Field(),
				"rule":  fieldErr.Tag(),
			})
		}
	}
	return details
}
