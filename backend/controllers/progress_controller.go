package controllers

import (
	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewProgressController(db *gorm.DB, cfg *config.Config) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg}
}

// GetProgress returns the caller's completion stats across question sets.
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var progresses []models.UserQuizProgress
	if err := pc.DB.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&progresses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var result []fiber.Map
	for _, progress := range progresses {
		var set models.QuestionSet
		if err := pc.DB.First(&set, progress.QuestionSetID).Error; err != nil {
			continue
		}

		var questionCount int64
		pc.DB.Model(&models.Question{}).
			Where("question_set_id = ?", set.ID).
			Count(&questionCount)

		result = append(result, fiber.Map{
			"question_set_id":    set.ID,
			"title":              set.Title,
			"category":           set.Category,
			"questions":          questionCount,
			"questions_answered": progress.QuestionsAnswered,
			"correct_answers":    progress.CorrectAnswers,
			"score":              progress.Score,
			"attempts_used":      progress.AttemptsUsed,
			"last_attempt":       progress.LastAttempt,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}
