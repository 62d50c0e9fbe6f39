package models

import "gorm.io/gorm"

type UserQuizProgress struct {
	gorm.Model
	UserID            uint
	QuestionSetID     uint
	QuestionsAnswered int
	CorrectAnswers    int
	Score             float64
	AttemptsUsed      int
	LastAttempt       string
}
