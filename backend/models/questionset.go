package models

import "gorm.io/gorm"

type QuestionSet struct {
	gorm.Model
	Title          string
	Category       string
	ShortDesc      string
	Description    string
	LogoURL        string
	Paywall        bool
	Price          float64
	TrialQuestions int // free questions for logged-in users without an entitlement
	Questions      []Question
}

const (
	QuestionTypeSingle   = "single"
	QuestionTypeMultiple = "multiple"
)

type Question struct {
	gorm.Model
	QuestionSetID  uint
	Prompt         string
	Type           string // single, multiple
	Options        string // JSON array of options
	CorrectAnswers string // JSON array of option indexes
	Explanation    string
	SequenceOrder  int
}
