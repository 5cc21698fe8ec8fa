package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/drona-ai/grading-api/internal/dto"
	"github.com/drona-ai/grading-api/internal/service"
	"github.com/drona-ai/grading-api/internal/utils"
)

// GradingHandler manages the two-phase grading endpoints.
type GradingHandler struct {
	rubrics     service.RubricService
	evaluations service.EvaluationService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(rubrics service.RubricService, evaluations service.EvaluationService, validator *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		rubrics:     rubrics,
		evaluations: evaluations,
		validator:   validator,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/rubric", h.generateRubric)
	router.Post("/evaluate", h.evaluate)
}

func (h *GradingHandler) generateRubric(c *fiber.Ctx) error {
	var payload dto.RubricGenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.rubrics.Generate(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubric generated", response)
}

func (h *GradingHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.evaluations.Evaluate(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", response)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrEmptyInput):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidRubric):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrRubricGeneration):
		h.logger.Error().Err(err).Msg("rubric generation failed")
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrConsensusFailure):
		h.logger.Error().Err(err).Msg("consensus quorum not met")
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
