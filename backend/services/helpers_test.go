package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quizhub/backend/models"
	"quizhub/backend/utils"
)

// newTestDB opens a fresh in-memory database for one test. The shared-cache
// name keeps all pooled connections on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createSet builds a question set with n single-choice questions.
func createSet(t *testing.T, db *gorm.DB, paywall bool, trial, n int) *models.QuestionSet {
	t.Helper()

	set := models.QuestionSet{
		Title:          "Sample Exam",
		Category:       "general",
		Paywall:        paywall,
		Price:          29.9,
		TrialQuestions: trial,
	}
	require.NoError(t, db.Create(&set).Error)

	options, _ := json.Marshal([]string{"A", "B", "C", "D"})
	answers, _ := json.Marshal([]int{0})
	for i := 0; i < n; i++ {
		question := models.Question{
			QuestionSetID:  set.ID,
			Prompt:         fmt.Sprintf("Question %d", i+1),
			Type:           models.QuestionTypeSingle,
			Options:        string(options),
			CorrectAnswers: string(answers),
			SequenceOrder:  i + 1,
		}
		require.NoError(t, db.Create(&question).Error)
	}

	require.NoError(t, db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&set, set.ID).Error)

	return &set
}

func grantEntitlement(t *testing.T, db *gorm.DB, userID, setID uint, expiresAt time.Time, origin string) *models.Entitlement {
	t.Helper()

	ent := models.Entitlement{
		UserID:        userID,
		QuestionSetID: setID,
		GrantedAt:     time.Now(),
		ExpiresAt:     expiresAt,
		Origin:        origin,
	}
	require.NoError(t, db.Create(&ent).Error)
	return &ent
}

func entitlementCount(t *testing.T, db *gorm.DB, userID, setID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Entitlement{}).
		Where("user_id = ? AND question_set_id = ?", userID, setID).
		Count(&count).Error)
	return count
}
