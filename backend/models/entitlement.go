package models

import (
	"time"

	"gorm.io/gorm"
)

// Entitlement is a time-boxed grant of full access to one question set,
// created by a completed purchase or a redeemed code.
type Entitlement struct {
	gorm.Model
	UserID        uint
	QuestionSetID uint
	GrantedAt     time.Time
	ExpiresAt     time.Time
	Origin        string `gorm:"uniqueIndex"` // payment reference or redeem code
	Amount        float64
}

func (e *Entitlement) Active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
