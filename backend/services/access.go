package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"quizhub/backend/models"
)

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// AccessResult is the verdict for one user on one question set.
type AccessResult struct {
	FullAccess  bool
	TrialLimit  int
	Entitlement *models.Entitlement
}

// Evaluate decides between full access, trial access and no access. userID is
// nil for anonymous callers; they get no trial questions on paywalled sets,
// only logged-in users consume the trial allowance.
func (s *AccessService) Evaluate(userID *uint, set *models.QuestionSet) (*AccessResult, error) {
	if !set.Paywall {
		// Price and trial count are ignored for open sets.
		return &AccessResult{FullAccess: true, TrialLimit: len(set.Questions)}, nil
	}

	if userID == nil {
		return &AccessResult{FullAccess: false, TrialLimit: 0}, nil
	}

	// If stacked entitlements exist, the latest expiry wins.
	var ent models.Entitlement
	err := s.DB.Where("user_id = ? AND question_set_id = ? AND expires_at > ?",
		*userID, set.ID, time.Now()).
		Order("expires_at DESC").
		First(&ent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AccessResult{FullAccess: false, TrialLimit: set.TrialQuestions}, nil
		}
		return nil, err
	}

	return &AccessResult{FullAccess: true, TrialLimit: len(set.Questions), Entitlement: &ent}, nil
}

// QuestionAccessible gates a single question by its original storage index,
// not its display position, so trial access covers the same questions
// regardless of shuffle.
func (r *AccessResult) QuestionAccessible(index int) bool {
	return r.FullAccess || index < r.TrialLimit
}
