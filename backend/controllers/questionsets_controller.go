package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/services"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type QuestionSetsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Access *services.AccessService
}

func NewQuestionSetsController(db *gorm.DB, cfg *config.Config) *QuestionSetsController {
	return &QuestionSetsController{DB: db, Cfg: cfg, Access: services.NewAccessService(db)}
}

// ListQuestionSets returns the public catalog. Anonymous callers are allowed;
// paywall and price information is always included so the client can render
// the purchase prompt.
func (qc *QuestionSetsController) ListQuestionSets(c *fiber.Ctx) error {
	category := c.Query("category")
	search := c.Query("search")

	query := qc.DB.Model(&models.QuestionSet{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		query = query.Where("title LIKE ? OR short_desc LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var sets []models.QuestionSet
	if err := query.Order("created_at DESC").Find(&sets).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch question sets")
	}

	var result []fiber.Map
	for _, set := range sets {
		var questionCount int64
		qc.DB.Model(&models.Question{}).Where("question_set_id = ?", set.ID).Count(&questionCount)

		result = append(result, fiber.Map{
			"id":              set.ID,
			"title":           set.Title,
			"category":        set.Category,
			"short_desc":      set.ShortDesc,
			"logo_url":        set.LogoURL,
			"paywall":         set.Paywall,
			"price":           set.Price,
			"trial_questions": set.TrialQuestions,
			"questions":       questionCount,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// GetQuestionSet returns a set with its questions and the caller's access
// verdict. Correct answers are never included here; inaccessible questions
// are listed but marked locked so the client can offer the paywall flows.
func (qc *QuestionSetsController) GetQuestionSet(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var set models.QuestionSet
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	userID := optionalUserID(c, qc.Cfg)
	access, err := qc.Access.Evaluate(userID, &set)
	if err != nil {
		return utils.InternalServerError(c, "Could not evaluate access")
	}

	var questions []fiber.Map
	for i, q := range set.Questions {
		accessible := access.QuestionAccessible(i)
		entry := fiber.Map{
			"id":         q.ID,
			"type":       q.Type,
			"order":      q.SequenceOrder,
			"accessible": accessible,
		}
		if accessible {
			entry["prompt"] = q.Prompt
			entry["options"] = decodeOptions(&q)
		}
		questions = append(questions, entry)
	}

	accessInfo := fiber.Map{
		"full_access": access.FullAccess,
		"trial_limit": access.TrialLimit,
	}
	if access.Entitlement != nil {
		accessInfo["expires_at"] = access.Entitlement.ExpiresAt
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"set": fiber.Map{
			"id":              set.ID,
			"title":           set.Title,
			"category":        set.Category,
			"short_desc":      set.ShortDesc,
			"description":     set.Description,
			"logo_url":        set.LogoURL,
			"paywall":         set.Paywall,
			"price":           set.Price,
			"trial_questions": set.TrialQuestions,
			"questions":       questions,
		},
		"access": accessInfo,
	})
}

// SubmitAnswers scores a batch of answers and saves the caller's progress.
// Answers for questions outside the caller's access window are refused.
func (qc *QuestionSetsController) SubmitAnswers(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	type AnswerInput struct {
		QuestionID uint  `json:"question_id"`
		Selected   []int `json:"selected"`
	}
	var input struct {
		Answers []AnswerInput `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var set models.QuestionSet
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	access, err := qc.Access.Evaluate(&userID, &set)
	if err != nil {
		return utils.InternalServerError(c, "Could not evaluate access")
	}

	indexByID := make(map[uint]int, len(set.Questions))
	for i, q := range set.Questions {
		indexByID[q.ID] = i
	}

	correct := 0
	for _, answer := range input.Answers {
		idx, ok := indexByID[answer.QuestionID]
		if !ok {
			return utils.BadRequest(c, "Unknown question ID")
		}
		if !access.QuestionAccessible(idx) {
			return serviceError(c, services.ErrNeedsEntitlement)
		}
		if answersMatch(&set.Questions[idx], answer.Selected) {
			correct++
		}
	}

	var progress models.UserQuizProgress
	if err := qc.DB.Where("user_id = ? AND question_set_id = ?", userID, setID).
		First(&progress).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.InternalServerError(c, "Could not query database")
		}
		progress = models.UserQuizProgress{UserID: userID, QuestionSetID: uint(setID)}
	}

	progress.QuestionsAnswered = len(input.Answers)
	progress.CorrectAnswers = correct
	if len(set.Questions) > 0 {
		progress.Score = float64(correct) / float64(len(set.Questions)) * 100
	}
	progress.AttemptsUsed++
	progress.LastAttempt = time.Now().Format(time.RFC3339)

	if err := qc.DB.Save(&progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"questions_answered": progress.QuestionsAnswered,
		"correct_answers":    progress.CorrectAnswers,
		"score":              progress.Score,
		"attempts_used":      progress.AttemptsUsed,
	})
}

// answersMatch compares a submission against the stored correct answers.
// Single choice expects exactly one selection; multiple choice expects the
// exact set, order-insensitive.
func answersMatch(q *models.Question, selected []int) bool {
	correct := decodeCorrectAnswers(q)

	if q.Type == models.QuestionTypeSingle {
		return len(selected) == 1 && len(correct) == 1 && selected[0] == correct[0]
	}

	if len(selected) != len(correct) {
		return false
	}
	want := make(map[int]bool, len(correct))
	for _, idx := range correct {
		want[idx] = true
	}
	for _, idx := range selected {
		if !want[idx] {
			return false
		}
	}
	return true
}

// GetResult returns the caller's latest result with correct answers and
// explanations, gated per question like the quiz itself.
func (qc *QuestionSetsController) GetResult(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var set models.QuestionSet
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var progress models.UserQuizProgress
	if err := qc.DB.Where("user_id = ? AND question_set_id = ?", userID, setID).
		First(&progress).Error; err != nil {
		return utils.NotFound(c, "Quiz not attempted")
	}

	access, err := qc.Access.Evaluate(&userID, &set)
	if err != nil {
		return utils.InternalServerError(c, "Could not evaluate access")
	}

	var questions []fiber.Map
	for i, q := range set.Questions {
		if !access.QuestionAccessible(i) {
			continue
		}
		questions = append(questions, fiber.Map{
			"id":              q.ID,
			"prompt":          q.Prompt,
			"type":            q.Type,
			"options":         decodeOptions(&q),
			"correct_answers": decodeCorrectAnswers(&q),
			"explanation":     q.Explanation,
			"order":           q.SequenceOrder,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"questions": questions,
		"result": fiber.Map{
			"questions_answered": progress.QuestionsAnswered,
			"correct_answers":    progress.CorrectAnswers,
			"score":              progress.Score,
			"attempts_used":      progress.AttemptsUsed,
		},
	})
}

// CreateQuestionSet creates an empty set. Admin only (enforced by routing).
func (qc *QuestionSetsController) CreateQuestionSet(c *fiber.Ctx) error {
	var input struct {
		Title          string  `json:"title"`
		Category       string  `json:"category"`
		ShortDesc      string  `json:"short_desc"`
		Description    string  `json:"description"`
		LogoURL        string  `json:"logo_url"`
		Paywall        bool    `json:"paywall"`
		Price          float64 `json:"price"`
		TrialQuestions int     `json:"trial_questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}
	if input.Price < 0 || input.TrialQuestions < 0 {
		return serviceError(c, services.ErrValidation)
	}

	set := models.QuestionSet{
		Title:          input.Title,
		Category:       input.Category,
		ShortDesc:      input.ShortDesc,
		Description:    input.Description,
		LogoURL:        input.LogoURL,
		Paywall:        input.Paywall,
		Price:          input.Price,
		TrialQuestions: input.TrialQuestions,
	}
	if err := qc.DB.Create(&set).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question set")
	}

	return utils.Created(c, set)
}

// UpdateQuestionSet updates set metadata and paywall settings.
func (qc *QuestionSetsController) UpdateQuestionSet(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input struct {
		Title          *string  `json:"title"`
		Category       *string  `json:"category"`
		ShortDesc      *string  `json:"short_desc"`
		Description    *string  `json:"description"`
		LogoURL        *string  `json:"logo_url"`
		Paywall        *bool    `json:"paywall"`
		Price          *float64 `json:"price"`
		TrialQuestions *int     `json:"trial_questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var set models.QuestionSet
	if err := qc.DB.First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != nil {
		set.Title = *input.Title
	}
	if input.Category != nil {
		set.Category = *input.Category
	}
	if input.ShortDesc != nil {
		set.ShortDesc = *input.ShortDesc
	}
	if input.Description != nil {
		set.Description = *input.Description
	}
	if input.LogoURL != nil {
		set.LogoURL = *input.LogoURL
	}
	if input.Paywall != nil {
		set.Paywall = *input.Paywall
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return serviceError(c, services.ErrValidation)
		}
		set.Price = *input.Price
	}
	if input.TrialQuestions != nil {
		if *input.TrialQuestions < 0 {
			return serviceError(c, services.ErrValidation)
		}
		set.TrialQuestions = *input.TrialQuestions
	}

	if err := qc.DB.Save(&set).Error; err != nil {
		return utils.InternalServerError(c, "Could not update question set")
	}

	return utils.Success(c, fiber.StatusOK, set)
}

// DeleteQuestionSet removes a set and its questions.
func (qc *QuestionSetsController) DeleteQuestionSet(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var set models.QuestionSet
	if err := qc.DB.First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := qc.DB.Where("question_set_id = ?", setID).Delete(&models.Question{}).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete questions")
	}
	if err := qc.DB.Delete(&set).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete question set")
	}

	return utils.NoContent(c)
}

type questionInput struct {
	Prompt         string   `json:"prompt"`
	Type           string   `json:"type"`
	Options        []string `json:"options"`
	CorrectAnswers []int    `json:"correct_answers"`
	Explanation    string   `json:"explanation"`
}

// validateQuestion enforces the answer invariants: single has exactly one
// correct option, multiple has at least one, and every index references an
// existing option.
func validateQuestion(in *questionInput) error {
	if in.Type != models.QuestionTypeSingle && in.Type != models.QuestionTypeMultiple {
		return services.ErrValidation
	}
	if len(in.Options) < 2 {
		return services.ErrValidation
	}
	if in.Type == models.QuestionTypeSingle && len(in.CorrectAnswers) != 1 {
		return services.ErrValidation
	}
	if in.Type == models.QuestionTypeMultiple && len(in.CorrectAnswers) == 0 {
		return services.ErrValidation
	}
	for _, idx := range in.CorrectAnswers {
		if idx < 0 || idx >= len(in.Options) {
			return services.ErrValidation
		}
	}
	return nil
}

// AddQuestion appends a question to a set.
func (qc *QuestionSetsController) AddQuestion(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input questionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validateQuestion(&input); err != nil {
		return serviceError(c, err)
	}

	var set models.QuestionSet
	if err := qc.DB.First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	optionsJSON, err := json.Marshal(input.Options)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode options")
	}
	answersJSON, err := json.Marshal(input.CorrectAnswers)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode answers")
	}

	var questionCount int64
	qc.DB.Model(&models.Question{}).Where("question_set_id = ?", setID).Count(&questionCount)

	question := models.Question{
		QuestionSetID:  uint(setID),
		Prompt:         input.Prompt,
		Type:           input.Type,
		Options:        string(optionsJSON),
		CorrectAnswers: string(answersJSON),
		Explanation:    input.Explanation,
		SequenceOrder:  int(questionCount) + 1,
	}
	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	return utils.Created(c, question)
}

// UpdateQuestion replaces the content of one question.
func (qc *QuestionSetsController) UpdateQuestion(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	var input questionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validateQuestion(&input); err != nil {
		return serviceError(c, err)
	}

	var question models.Question
	if err := qc.DB.Where("id = ? AND question_set_id = ?", questionID, setID).
		First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	optionsJSON, _ := json.Marshal(input.Options)
	answersJSON, _ := json.Marshal(input.CorrectAnswers)

	question.Prompt = input.Prompt
	question.Type = input.Type
	question.Options = string(optionsJSON)
	question.CorrectAnswers = string(answersJSON)
	question.Explanation = input.Explanation

	if err := qc.DB.Save(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not update question")
	}

	return utils.Success(c, fiber.StatusOK, question)
}

// DeleteQuestion removes one question from a set.
func (qc *QuestionSetsController) DeleteQuestion(c *fiber.Ctx) error {
	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	res := qc.DB.Where("id = ? AND question_set_id = ?", questionID, setID).
		Delete(&models.Question{})
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete question")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Question not found")
	}

	return utils.NoContent(c)
}
