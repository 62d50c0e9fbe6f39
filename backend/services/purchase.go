package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"quizhub/backend/models"
)

// PurchaseValidityMonths is the fixed entitlement window for a direct purchase.
const PurchaseValidityMonths = 6

type PurchaseService struct {
	DB *gorm.DB
}

func NewPurchaseService(db *gorm.DB) *PurchaseService {
	return &PurchaseService{DB: db}
}

// CompletePurchase records the entitlement for a payment the gateway already
// confirmed; it does not verify the payment itself. Replaying the same
// payment reference never creates a second entitlement.
func (s *PurchaseService) CompletePurchase(userID, questionSetID uint, paymentRef string, amount float64) (*models.Entitlement, error) {
	if paymentRef == "" || amount < 0 {
		return nil, ErrValidation
	}

	var ent models.Entitlement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var set models.QuestionSet
		if err := tx.First(&set, questionSetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !set.Paywall {
			return ErrValidation
		}

		var existing models.Entitlement
		err := tx.Where("origin = ?", paymentRef).First(&existing).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		ent = models.Entitlement{
			UserID:        userID,
			QuestionSetID: questionSetID,
			GrantedAt:     now,
			ExpiresAt:     now.AddDate(0, PurchaseValidityMonths, 0),
			Origin:        paymentRef,
			Amount:        amount,
		}
		return tx.Create(&ent).Error
	})
	if err != nil {
		return nil, err
	}

	return &ent, nil
}
