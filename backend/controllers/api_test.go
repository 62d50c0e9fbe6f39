package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/routes"
	"quizhub/backend/utils"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cfg := &config.Config{JWTSecret: "testsecret"}
	app := fiber.New()
	routes.SetupRoutes(app, db, cfg)

	return &testEnv{app: app, db: db, cfg: cfg}
}

func (e *testEnv) createUser(t *testing.T, username, role string) (*models.User, string) {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		Role:         role,
	}
	require.NoError(t, e.db.Create(&user).Error)

	token, err := utils.GenerateJWTToken(user.ID, e.cfg)
	require.NoError(t, err)
	return &user, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func (e *testEnv) createPaywalledSet(t *testing.T, adminToken string, trial, questions int) uint {
	t.Helper()

	status, result := e.request(t, "POST", "/api/admin/questionsets/", adminToken, map[string]interface{}{
		"title":           "Certification Exam",
		"category":        "certification",
		"paywall":         true,
		"price":           29.9,
		"trial_questions": trial,
	})
	require.Equal(t, fiber.StatusCreated, status)
	setID := uint(result["data"].(map[string]interface{})["ID"].(float64))

	for i := 0; i < questions; i++ {
		status, _ = e.request(t, "POST", fmt.Sprintf("/api/admin/questionsets/%d/questions", setID), adminToken, map[string]interface{}{
			"prompt":          fmt.Sprintf("Question %d", i+1),
			"type":            "single",
			"options":         []string{"A", "B", "C", "D"},
			"correct_answers": []int{0},
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	return setID
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	status, result := env.request(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])

	status, result = env.request(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])

	status, _ = env.request(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.createUser(t, "regular", "user")

	status, _ := env.request(t, "POST", "/api/admin/questionsets/", userToken, map[string]interface{}{
		"title": "Nope",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.request(t, "POST", "/api/admin/questionsets/", "", map[string]interface{}{
		"title": "Nope",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestQuestionValidation(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	setID := env.createPaywalledSet(t, adminToken, 0, 0)

	// Correct answer index out of range.
	status, _ := env.request(t, "POST", fmt.Sprintf("/api/admin/questionsets/%d/questions", setID), adminToken, map[string]interface{}{
		"prompt":          "Bad",
		"type":            "single",
		"options":         []string{"A", "B"},
		"correct_answers": []int{5},
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	// Single choice with two correct answers.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/admin/questionsets/%d/questions", setID), adminToken, map[string]interface{}{
		"prompt":          "Bad",
		"type":            "single",
		"options":         []string{"A", "B"},
		"correct_answers": []int{0, 1},
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	// Multiple choice with no correct answers.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/admin/questionsets/%d/questions", setID), adminToken, map[string]interface{}{
		"prompt":          "Bad",
		"type":            "multiple",
		"options":         []string{"A", "B"},
		"correct_answers": []int{},
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestAccessGatingInSetDetails(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "student", "user")
	setID := env.createPaywalledSet(t, adminToken, 3, 10)

	countAccessible := func(result map[string]interface{}) int {
		data := result["data"].(map[string]interface{})
		questions := data["set"].(map[string]interface{})["questions"].([]interface{})
		accessible := 0
		for _, raw := range questions {
			q := raw.(map[string]interface{})
			if q["accessible"].(bool) {
				accessible++
				assert.NotEmpty(t, q["prompt"])
			} else {
				assert.Nil(t, q["prompt"])
			}
			// Correct answers must never leak from this endpoint.
			assert.Nil(t, q["correct_answers"])
		}
		return accessible
	}

	// Anonymous: everything locked.
	status, result := env.request(t, "GET", fmt.Sprintf("/api/questionsets/%d", setID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, countAccessible(result))

	// Logged in without entitlement: trial window only.
	status, result = env.request(t, "GET", fmt.Sprintf("/api/questionsets/%d", setID), userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 3, countAccessible(result))
}

func TestRedeemFlow(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "student", "user")
	setID := env.createPaywalledSet(t, adminToken, 3, 10)

	status, result := env.request(t, "POST", "/api/admin/codes/", adminToken, map[string]interface{}{
		"question_set_id": setID,
		"validity_days":   30,
		"quantity":        2,
	})
	require.Equal(t, fiber.StatusCreated, status)
	codes := result["data"].([]interface{})
	require.Len(t, codes, 2)
	code := codes[0].(map[string]interface{})["code"].(string)

	status, _ = env.request(t, "POST", "/api/redeem", userToken, map[string]string{"code": code})
	assert.Equal(t, fiber.StatusOK, status)

	// All questions open now.
	status, result = env.request(t, "GET", fmt.Sprintf("/api/questionsets/%d", setID), userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	access := result["data"].(map[string]interface{})["access"].(map[string]interface{})
	assert.True(t, access["full_access"].(bool))

	// Second redemption of the same code fails.
	status, _ = env.request(t, "POST", "/api/redeem", userToken, map[string]string{"code": code})
	assert.Equal(t, fiber.StatusConflict, status)

	// Unknown code.
	status, _ = env.request(t, "POST", "/api/redeem", userToken, map[string]string{"code": "BOGUS"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPurchaseFlow(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "buyer", "user")
	setID := env.createPaywalledSet(t, adminToken, 3, 10)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/purchase", setID), userToken, map[string]interface{}{
		"payment_reference": "txn-api-1",
		"amount":            29.9,
	})
	assert.Equal(t, fiber.StatusCreated, status)

	// Replayed callback must not create a second entitlement.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/purchase", setID), userToken, map[string]interface{}{
		"payment_reference": "txn-api-1",
		"amount":            29.9,
	})
	assert.Equal(t, fiber.StatusConflict, status)

	var count int64
	env.db.Model(&models.Entitlement{}).Count(&count)
	assert.Equal(t, int64(1), count)

	status, result := env.request(t, "GET", "/api/entitlements", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, result["data"].([]interface{}), 1)
}

func TestSubmitAnswersAndResult(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "student", "user")
	setID := env.createPaywalledSet(t, adminToken, 3, 5)

	var questions []models.Question
	require.NoError(t, env.db.Where("question_set_id = ?", setID).
		Order("sequence_order ASC").Find(&questions).Error)

	// Trial user answers the first two trial questions, one correctly.
	status, result := env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/answers", setID), userToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions[0].ID, "selected": []int{0}},
			{"question_id": questions[1].ID, "selected": []int{1}},
		},
	})
	require.Equal(t, fiber.StatusOK, status)
	data := result["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["questions_answered"])
	assert.Equal(t, float64(1), data["correct_answers"])

	// Answering past the trial window is refused.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/answers", setID), userToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions[4].ID, "selected": []int{0}},
		},
	})
	assert.Equal(t, fiber.StatusPaymentRequired, status)

	// The result view only covers accessible questions.
	status, result = env.request(t, "GET", fmt.Sprintf("/api/questionsets/%d/result", setID), userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	data = result["data"].(map[string]interface{})
	assert.Len(t, data["questions"].([]interface{}), 3)
}

func TestSessionNavigation(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "student", "user")
	setID := env.createPaywalledSet(t, adminToken, 3, 10)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/session", setID), userToken, map[string]string{
		"mode": "sequential",
	})
	require.Equal(t, fiber.StatusOK, status)

	// Random mode needs full access.
	status, _ = env.request(t, "PUT", fmt.Sprintf("/api/questionsets/%d/session/mode", setID), userToken, map[string]string{
		"mode": "random",
	})
	assert.Equal(t, fiber.StatusPaymentRequired, status)

	// Trial boundary.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/session/navigate", setID), userToken, map[string]int{
		"position": 2,
	})
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/questionsets/%d/session/navigate", setID), userToken, map[string]int{
		"position": 3,
	})
	assert.Equal(t, fiber.StatusPaymentRequired, status)
}

func TestHomepageContent(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	_, userToken := env.createUser(t, "student", "user")

	status, _ := env.request(t, "PUT", "/api/admin/homepage", adminToken, map[string]string{
		"title":        "Pass your exams",
		"announcement": "New certification sets available",
	})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.request(t, "PUT", "/api/admin/homepage", userToken, map[string]string{
		"title": "Hacked",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, result := env.request(t, "GET", "/api/homepage", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	data := result["data"].(map[string]interface{})
	assert.Equal(t, "Pass your exams", data["title"])
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin")
	target, _ := env.createUser(t, "doomed", "user")

	status, result := env.request(t, "GET", "/api/admin/users/", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), result["total"])

	status, _ = env.request(t, "DELETE", fmt.Sprintf("/api/admin/users/%d", target.ID), adminToken, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = env.request(t, "DELETE", fmt.Sprintf("/api/admin/users/%d", target.ID), adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
