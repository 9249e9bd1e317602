package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/dairyforms/internal/services"
	"go.uber.org/zap"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// workflowError maps workflow failures onto HTTP responses.
func (handler *Handler) workflowError(c *fiber.Ctx, err error) error {
	var validation *services.ValidationError
	var persistence *services.PersistenceError

	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"error": validation.Error()}
		if len(validation.Missing) > 0 {
			body["missing"] = validation.Missing
			body["missing_labels"] = validation.MissingLabels
		}
		if len(validation.Invalid) > 0 {
			body["invalid"] = validation.Invalid
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrFormMismatch):
		return apiError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPhotoIndex):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnknownForm):
		return apiError(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &persistence):
		handler.logger.Error("workflow persistence failure", zap.String("op", persistence.Op), zap.Error(persistence.Err))
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("failed to %s", persistence.Op))
	default:
		handler.logger.Error("unexpected workflow failure", zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func setAttachmentHeaders(c *fiber.Ctx, contentType string, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
}
