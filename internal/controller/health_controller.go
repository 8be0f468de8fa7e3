package controller

import (
	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/serverutils"
	"ba-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	service service.IAssistantService
	info    dto.HealthResponse
}

// NewHealthController reports the static runtime info plus the live
// session count
func NewHealthController(service service.IAssistantService, info dto.HealthResponse) IHealthController {
	return &healthController{service: service, info: info}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Health)
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := c.info
	res.Status = "ok"
	res.ActiveSessions = len(c.service.ListActiveSessions())
	return ctx.JSON(serverutils.SuccessResponse("Service healthy", res))
}
