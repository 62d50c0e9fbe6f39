package services

import (
	"encoding/json"
	"errors"
	"math/rand"

	"gorm.io/gorm"

	"quizhub/backend/models"
)

type SessionService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db, Access: NewAccessService(db)}
}

// Start opens (or restarts) the caller's session on a question set. Random
// mode is reserved for full access so the trial window stays predictable for
// everyone else.
func (s *SessionService) Start(userID, questionSetID uint, mode string) (*models.QuizSession, error) {
	if mode == "" {
		mode = models.ModeSequential
	}
	if mode != models.ModeSequential && mode != models.ModeRandom {
		return nil, ErrValidation
	}

	var set models.QuestionSet
	err := s.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&set, questionSetID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	access, err := s.Access.Evaluate(&userID, &set)
	if err != nil {
		return nil, err
	}
	if mode == models.ModeRandom && !access.FullAccess {
		return nil, ErrNeedsEntitlement
	}

	encoded, err := json.Marshal(questionOrder(len(set.Questions), mode))
	if err != nil {
		return nil, err
	}

	var session models.QuizSession
	err = s.DB.Where("user_id = ? AND question_set_id = ?", userID, questionSetID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		session = models.QuizSession{UserID: userID, QuestionSetID: questionSetID}
	} else if err != nil {
		return nil, err
	}

	session.Mode = mode
	session.QuestionOrder = string(encoded)
	session.Position = 0
	if err := s.DB.Save(&session).Error; err != nil {
		return nil, err
	}

	return &session, nil
}

// SetMode switches between sequential and random. The permutation is
// regenerated once and the position resets to the first question in the new
// order; it is never reshuffled on unrelated operations.
func (s *SessionService) SetMode(userID, questionSetID uint, mode string) (*models.QuizSession, error) {
	return s.Start(userID, questionSetID, mode)
}

// Navigate moves the session to a display position. Positions whose
// underlying question the caller may not see are refused and the position is
// left unchanged; the caller is expected to offer the purchase/redeem flows.
func (s *SessionService) Navigate(userID, questionSetID uint, position int) (*models.QuizSession, int, error) {
	var session models.QuizSession
	err := s.DB.Where("user_id = ? AND question_set_id = ?", userID, questionSetID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	var order []int
	if err := json.Unmarshal([]byte(session.QuestionOrder), &order); err != nil {
		return nil, 0, err
	}
	if position < 0 || position >= len(order) {
		return nil, 0, ErrValidation
	}

	var set models.QuestionSet
	if err := s.DB.First(&set, questionSetID).Error; err != nil {
		return nil, 0, err
	}
	access, err := s.Access.Evaluate(&userID, &set)
	if err != nil {
		return nil, 0, err
	}

	original := order[position]
	if !access.QuestionAccessible(original) {
		return nil, 0, ErrNeedsEntitlement
	}

	session.Position = position
	if err := s.DB.Save(&session).Error; err != nil {
		return nil, 0, err
	}

	return &session, original, nil
}

// questionOrder maps display position to original question index. Sequential
// mode is the identity; random mode shuffles once per call.
func questionOrder(n int, mode string) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if mode == models.ModeRandom {
		rand.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}
