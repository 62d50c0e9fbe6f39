package controllers

import (
	"encoding/json"
	"strconv"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/services"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SessionController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Sessions *services.SessionService
}

func NewSessionController(db *gorm.DB, cfg *config.Config) *SessionController {
	return &SessionController{DB: db, Cfg: cfg, Sessions: services.NewSessionService(db)}
}

func sessionResponse(session *models.QuizSession) fiber.Map {
	var order []int
	json.Unmarshal([]byte(session.QuestionOrder), &order)

	return fiber.Map{
		"question_set_id": session.QuestionSetID,
		"mode":            session.Mode,
		"order":           order,
		"position":        session.Position,
	}
}

// StartSession opens a fresh session on a question set.
func (sc *SessionController) StartSession(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input struct {
		Mode string `json:"mode"`
	}
	c.BodyParser(&input)

	session, err := sc.Sessions.Start(userID, uint(setID), input.Mode)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, sessionResponse(session))
}

// SetMode switches between sequential and random mode.
func (sc *SessionController) SetMode(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input struct {
		Mode string `json:"mode"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	session, err := sc.Sessions.SetMode(userID, uint(setID), input.Mode)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, sessionResponse(session))
}

// Navigate jumps to a display position. A 402 response means the underlying
// question is behind the paywall and the client should offer purchase/redeem.
func (sc *SessionController) Navigate(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input struct {
		Position int `json:"position"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	session, original, err := sc.Sessions.Navigate(userID, uint(setID), input.Position)
	if err != nil {
		return serviceError(c, err)
	}

	resp := sessionResponse(session)
	resp["question_index"] = original
	return utils.Success(c, fiber.StatusOK, resp)
}
