package controller

import (
	"strconv"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/pkg/serverutils"
	"ba-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetSessions(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service   service.IAssistantService
	logger    logger.ILogger
	jwtSecret string
}

// NewAdminController builds the admin routes. They are open when jwtSecret
// is empty.
func NewAdminController(service service.IAssistantService, log logger.ILogger, jwtSecret string) IAdminController {
	return &adminController{
		service:   service,
		logger:    log,
		jwtSecret: jwtSecret,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))

	h.Get("/sessions", c.GetSessions)
	h.Post("/cleanup", c.Cleanup)
	h.Get("/stats", c.GetStats)
	h.Get("/logs", c.GetLogs)
}

func (c *adminController) GetSessions(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Active sessions", c.service.ListActiveSessions()))
}

func (c *adminController) Cleanup(ctx *fiber.Ctx) error {
	var req dto.CleanupRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
	}
	if days := ctx.Query("older_than_days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "older_than_days must be a number"))
		}
		req.OlderThanDays = n
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Cleanup(ctx.UserContext(), req.OlderThanDays)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cleanup finished", res))
}

func (c *adminController) GetStats(ctx *fiber.Ctx) error {
	res, err := c.service.Statistics(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Statistics", res))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))
	level := ctx.Query("level", "")
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := c.logger.GetLogs(level, limit, (page-1)*limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}
