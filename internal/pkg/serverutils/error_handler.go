package serverutils

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"ba-assistant-be/pkg/render"
	"ba-assistant-be/pkg/store"
)

// StatusFor maps an engine error to its HTTP status and client message.
// Retryable provider failures are 502, timeouts 504, busy sessions 409.
func StatusFor(err error) (int, string) {
	var (
		fiberErr    *fiber.Error
		cfgErr      *store.ConfigurationError
		genErr      *store.GenerationError
		renderErr   *store.RenderError
		classifyErr *store.ClassificationError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, store.ErrEmptyMessage), errors.Is(err, render.ErrInvalidName):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, render.ErrDocumentNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrSessionBusy):
		return fiber.StatusConflict, "Session is busy with another message, retry later"
	case errors.Is(err, store.ErrTurnTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "The assistant took too long to answer, retry later"
	case errors.As(err, &cfgErr):
		return fiber.StatusInternalServerError, "Assistant is misconfigured: " + cfgErr.Reason
	case errors.As(err, &genErr), errors.As(err, &renderErr), errors.As(err, &classifyErr):
		return fiber.StatusBadGateway, "The assistant is temporarily unavailable, retry later"
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).
				JSON(ErrorResponseWithData(fiber.StatusBadRequest, "Invalid request", validationErr.Fields))
		}

		code, message := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
