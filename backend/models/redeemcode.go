package models

import (
	"time"

	"gorm.io/gorm"
)

// RedeemCode grants ValidityDays of access to its question set when consumed.
// A code is single-use: once Used flips it stays used. ExpiresAt, when set,
// is the deadline for redeeming the code itself, independent of the validity
// window that starts at redemption time.
type RedeemCode struct {
	gorm.Model
	Code          string `gorm:"uniqueIndex;not null"`
	QuestionSetID uint
	ValidityDays  int
	ExpiresAt     *time.Time
	Used          bool `gorm:"default:false"`
	UsedBy        *uint
	UsedAt        *time.Time
	CreatedBy     uint
}
