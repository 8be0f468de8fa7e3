package controller

import (
	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/serverutils"
	"ba-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IAssistantService
}

func NewChatController(service service.IAssistantService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.SendMessage)

	h := r.Group("/session")
	h.Get("/:id", c.GetSession)
	h.Post("/:id/reset", c.ResetSession)
	h.Get("/:id/history", c.GetHistory)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ProcessMessage(ctx.UserContext(), req.SessionId, req.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message processed", res))
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Session info", c.service.GetSessionInfo(ctx.Params("id"))))
}

func (c *chatController) ResetSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.service.ResetSession(ctx.UserContext(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session reset", c.service.GetSessionInfo(id)))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.service.GetHistory(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session history", res))
}
