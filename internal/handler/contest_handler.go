package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/service"
	"github.com/codearena/arena-api/internal/utils"
)

// ContestHandler manages contest and standings endpoints.
type ContestHandler struct {
	service     service.ContestService
	leaderboard service.LeaderboardService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewContestHandler builds a contest handler instance.
func NewContestHandler(service service.ContestService, leaderboard service.LeaderboardService, validator *validator.Validate, logger zerolog.Logger) *ContestHandler {
	return &ContestHandler{
		service:     service,
		leaderboard: leaderboard,
		validator:   validator,
		logger:      logger.With().Str("component", "contest_handler").Logger(),
	}
}

// Register attaches the public routes to the provided router group.
func (h *ContestHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/register", h.register)
	router.Get("/:id/standings", h.standings)
}

// RegisterAdmin attaches the admin-only routes to the provided router group.
func (h *ContestHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
}

func (h *ContestHandler) list(c *fiber.Ctx) error {
	page, pageSize := parsePagination(c)

	contests, total, err := h.service.List(c.Context(), page, pageSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "contests retrieved", fiber.Map{
		"contests": contests,
		"total":    total,
	})
}

func (h *ContestHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	contest, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "contest retrieved", contest)
}

func (h *ContestHandler) create(c *fiber.Ctx) error {
	var payload dto.ContestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	contest, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "contest created", contest)
}

func (h *ContestHandler) register(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Register(c.Context(), id, userID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "registered for contest", nil)
}

func (h *ContestHandler) standings(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	standings, err := h.leaderboard.Standings(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "standings retrieved", standings)
}

func (h *ContestHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrContestNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "contest not found")
	case errors.Is(err, service.ErrAlreadyRegistered):
		return utils.SendError(c, fiber.StatusConflict, "already registered")
	case errors.Is(err, models.ErrUnknownScoringKind):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported scoring kind")
	case errors.Is(err, service.ErrRegistrationClosed):
		return utils.SendError(c, fiber.StatusConflict, "contest registration closed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
