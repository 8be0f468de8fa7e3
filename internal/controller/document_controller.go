package controller

import (
	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/serverutils"
	"ba-assistant-be/pkg/render"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	library *render.Library
}

func NewDocumentController(library *render.Library) IDocumentController {
	return &documentController{library: library}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents")
	h.Get("", c.List)
	h.Get("/:filename", c.Download)
	h.Delete("/:filename", c.Delete)
}

// List returns every document, or one session's when ?session_id is set
func (c *documentController) List(ctx *fiber.Ctx) error {
	var (
		docs []render.DocumentInfo
		err  error
	)
	if sessionID := ctx.Query("session_id"); sessionID != "" {
		docs, err = c.library.ListSession(sessionID)
	} else {
		docs, err = c.library.List()
	}
	if err != nil {
		return err
	}

	res := make([]dto.DocumentResponse, len(docs))
	for i, d := range docs {
		res[i] = dto.DocumentResponse{Filename: d.Filename, Size: d.Size, UpdatedAt: d.UpdatedAt}
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents", res))
}

func (c *documentController) Download(ctx *fiber.Ctx) error {
	path, err := c.library.Resolve(ctx.Params("filename"))
	if err != nil {
		return err
	}
	return ctx.Download(path)
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	name := ctx.Params("filename")
	if err := c.library.Delete(name); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document "+name+" deleted", nil))
}
