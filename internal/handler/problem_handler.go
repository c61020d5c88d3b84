package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/internal/repository"
	"github.com/codequesthq/codequest-api/internal/service"
	"github.com/codequesthq/codequest-api/internal/utils"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

// ProblemHandler exposes problem catalogue and authoring endpoints.
type ProblemHandler struct {
	service service.ProblemService
	logger  zerolog.Logger
}

// NewProblemHandler constructs the handler.
func NewProblemHandler(service service.ProblemService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service: service,
		logger:  logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register wires the read endpoints into the problems group; authoring
// endpoints go into the admin-gated group.
func (h *ProblemHandler) Register(router, admin fiber.Router) {
	router.Get("", h.list)
	router.Get("/solved", h.solved)
	router.Get("/:id", h.get)

	admin.Post("", h.create)
	admin.Put("/:id", h.update)
	admin.Delete("/:id", h.delete)
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	filter := repository.ProblemFilter{
		Search:     c.Query("search"),
		Difficulty: c.Query("difficulty"),
		Tag:        c.Query("tag"),
		Page:       page,
		PageSize:   pageSize,
	}

	response, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problems retrieved", response)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problem retrieved", response)
}

func (h *ProblemHandler) solved(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.SolvedByUser(c.UserContext(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "solved problems retrieved", response)
}

func (h *ProblemHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	creatorID := userIDFromContext(c)
	if creatorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if userRoleFromContext(c) != models.RoleAdmin {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	response, err := h.service.Create(c.UserContext(), creatorID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem created", response)
}

func (h *ProblemHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UpdateProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problem updated", response)
}

func (h *ProblemHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problem deleted", nil)
}

func (h *ProblemHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var rejection *service.SolutionRejectedError
	switch {
	case errors.As(err, &rejection):
		return utils.SendError(c, fiber.StatusNotAcceptable, rejection.Error())
	case errors.Is(err, judge0.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid user")
	case errors.Is(err, judge0.ErrJudgeTimeout):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "judge timed out")
	case errors.Is(err, judge0.ErrJudgeUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "judge unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("problem operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
