package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
	"github.com/codearena/arena-api/internal/service"
	"github.com/codearena/arena-api/internal/utils"
)

// ProblemHandler manages problem catalog endpoints.
type ProblemHandler struct {
	service   service.ProblemService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProblemHandler builds a problem handler instance.
func NewProblemHandler(service service.ProblemService, validator *validator.Validate, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register attaches the public routes to the provided router group.
func (h *ProblemHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:idOrSlug", h.get)
}

// RegisterAdmin attaches the admin-only routes to the provided router group.
func (h *ProblemHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
	router.Put("/:id/testcases", h.importTestCases)
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	filter := repository.ProblemFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Difficulty: strings.TrimSpace(c.Query("difficulty")),
	}
	filter.Page, filter.PageSize = parsePagination(c)

	problems, total, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problems retrieved", fiber.Map{
		"problems": problems,
		"total":    total,
	})
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))

	if id, err := parseUintParam(c, "idOrSlug"); err == nil {
		problem, err := h.service.Get(c.Context(), id)
		if err != nil {
			return h.handleError(c, err)
		}
		return utils.SendSuccess(c, "problem retrieved", problem)
	}

	problem, err := h.service.GetBySlug(c.Context(), idOrSlug)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problem retrieved", problem)
}

func (h *ProblemHandler) create(c *fiber.Ctx) error {
	var payload dto.ProblemCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	problem := models.Problem{
		Title:         payload.Title,
		Statement:     payload.Statement,
		Difficulty:    payload.Difficulty,
		MaxScore:      payload.MaxScore,
		TimeLimitSec:  payload.TimeLimitSec,
		MemoryLimitKB: payload.MemoryLimitKB,
	}

	if err := h.service.Create(c.Context(), &problem); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem created", dto.NewProblemResponse(problem, nil))
}

func (h *ProblemHandler) importTestCases(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	count, err := h.service.ImportTestCases(c.Context(), id, c.Body())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "testcases imported", fiber.Map{"count": count})
}

func (h *ProblemHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "problem not found")
	case errors.Is(err, service.ErrBadTestCaseBundle):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid testcase bundle")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
