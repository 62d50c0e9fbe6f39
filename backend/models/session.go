package models

import "gorm.io/gorm"

const (
	ModeSequential = "sequential"
	ModeRandom     = "random"
)

// QuizSession tracks one user's walk through a question set. QuestionOrder is
// the display-order permutation of original question indexes, fixed when the
// session starts or the mode changes.
type QuizSession struct {
	gorm.Model
	UserID        uint
	QuestionSetID uint
	Mode          string // sequential, random
	QuestionOrder string // JSON array of original question indexes
	Position      int
}
