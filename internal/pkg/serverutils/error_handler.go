// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"

	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/strategy"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps an error to its HTTP status and client-facing message.
func StatusFor(err error) (int, string) {
	var fe *fiber.Error
	var storeErr *draftstore.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, strategy.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, strategy.ErrInvalidRecord):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &storeErr):
		if storeErr.Kind == draftstore.KindTimeout {
			return fiber.StatusGatewayTimeout, "remote store timed out: " + err.Error()
		}
		return fiber.StatusBadGateway, "remote store failed: " + err.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}
