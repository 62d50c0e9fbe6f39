package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quizhub/backend/models"
)

type RedeemService struct {
	DB *gorm.DB
}

func NewRedeemService(db *gorm.DB) *RedeemService {
	return &RedeemService{DB: db}
}

const codeLength = 16

func newCodeToken() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:codeLength]
}

// GenerateCodes creates quantity unused codes bound to a question set. Each
// code grants validityDays of access when redeemed; expiresAt, if set, is the
// deadline for redeeming the code itself. No entitlement is created here.
func (s *RedeemService) GenerateCodes(questionSetID uint, validityDays, quantity int, expiresAt *time.Time, issuer *models.User) ([]models.RedeemCode, error) {
	if issuer == nil || !issuer.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if validityDays < 1 || quantity < 1 {
		return nil, ErrValidation
	}

	var set models.QuestionSet
	if err := s.DB.First(&set, questionSetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	codes := make([]models.RedeemCode, 0, quantity)
	for i := 0; i < quantity; i++ {
		code := models.RedeemCode{
			Code:          newCodeToken(),
			QuestionSetID: questionSetID,
			ValidityDays:  validityDays,
			ExpiresAt:     expiresAt,
			CreatedBy:     issuer.ID,
		}
		// Retry on the off chance a token collides on the unique index.
		err := s.DB.Create(&code).Error
		for attempt := 0; err != nil && attempt < 3; attempt++ {
			code.Code = newCodeToken()
			err = s.DB.Create(&code).Error
		}
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// RedemptionResult reports the grant produced by a successful redemption.
type RedemptionResult struct {
	QuestionSetID uint
	Entitlement   models.Entitlement
}

// Redeem consumes a code for a user in a single transaction. Every failure
// path is a no-op against the store. Marking the code used is guarded on
// used = false, so concurrent redemptions of the same code cannot both
// succeed.
func (s *RedeemService) Redeem(code string, userID uint) (*RedemptionResult, error) {
	var result RedemptionResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var rc models.RedeemCode
		if err := tx.Where("code = ?", code).First(&rc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rc.Used {
			return ErrAlreadyUsed
		}

		now := time.Now()
		if rc.ExpiresAt != nil && now.After(*rc.ExpiresAt) {
			return ErrExpired
		}

		res := tx.Model(&models.RedeemCode{}).
			Where("id = ? AND used = ?", rc.ID, false).
			Updates(map[string]interface{}{"used": true, "used_by": userID, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyUsed
		}

		newExpiry := now.AddDate(0, 0, rc.ValidityDays)

		var ent models.Entitlement
		err := tx.Where("user_id = ? AND question_set_id = ? AND expires_at > ?",
			userID, rc.QuestionSetID, now).
			Order("expires_at DESC").
			First(&ent).Error
		switch {
		case err == nil:
			// Extend the existing grant; the later expiry wins.
			if newExpiry.After(ent.ExpiresAt) {
				ent.ExpiresAt = newExpiry
				if err := tx.Save(&ent).Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			ent = models.Entitlement{
				UserID:        userID,
				QuestionSetID: rc.QuestionSetID,
				GrantedAt:     now,
				ExpiresAt:     newExpiry,
				Origin:        rc.Code,
				Amount:        0,
			}
			if err := tx.Create(&ent).Error; err != nil {
				return err
			}
		default:
			return err
		}

		result = RedemptionResult{QuestionSetID: rc.QuestionSetID, Entitlement: ent}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
