package controllers

import (
	"encoding/json"
	"errors"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/services"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps a business outcome from the services package onto an HTTP
// status. Anything unrecognized is treated as a persistence failure.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyUsed):
		return utils.Error(c, fiber.StatusConflict, err)
	case errors.Is(err, services.ErrExpired):
		return utils.Error(c, fiber.StatusGone, err)
	case errors.Is(err, services.ErrUnauthorized):
		return utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		return utils.Error(c, fiber.StatusConflict, err)
	case errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrNeedsEntitlement):
		return utils.Error(c, fiber.StatusPaymentRequired, err)
	default:
		return utils.InternalServerError(c, "Could not query database")
	}
}

// optionalUserID extracts the caller's user ID when a token is present.
// Anonymous callers get nil.
func optionalUserID(c *fiber.Ctx, cfg *config.Config) *uint {
	userID, err := utils.ExtractUserIDFromToken(c, cfg)
	if err != nil {
		return nil
	}
	return &userID
}

// decodeOptions parses the JSON-encoded option list of a question.
func decodeOptions(q *models.Question) []string {
	var options []string
	json.Unmarshal([]byte(q.Options), &options)
	return options
}

// decodeCorrectAnswers parses the JSON-encoded correct option indexes.
func decodeCorrectAnswers(q *models.Question) []int {
	var answers []int
	json.Unmarshal([]byte(q.CorrectAnswers), &answers)
	return answers
}
