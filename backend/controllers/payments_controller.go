package controllers

import (
	"strconv"
	"time"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/services"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PaymentsController covers both paths into the entitlement store: confirmed
// purchases and redeem codes.
type PaymentsController struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Redeems   *services.RedeemService
	Purchases *services.PurchaseService
}

func NewPaymentsController(db *gorm.DB, cfg *config.Config) *PaymentsController {
	return &PaymentsController{
		DB:        db,
		Cfg:       cfg,
		Redeems:   services.NewRedeemService(db),
		Purchases: services.NewPurchaseService(db),
	}
}

// Redeem consumes a code for the caller.
func (pc *PaymentsController) Redeem(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Code == "" {
		return utils.BadRequest(c, "Code is required")
	}

	result, err := pc.Redeems.Redeem(input.Code, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"question_set_id": result.QuestionSetID,
		"expires_at":      result.Entitlement.ExpiresAt,
	})
}

// CompletePurchase records an entitlement for a payment the gateway has
// confirmed. The reference uniqueness makes callback replays harmless.
func (pc *PaymentsController) CompletePurchase(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	setID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question set ID")
	}

	var input struct {
		PaymentReference string  `json:"payment_reference"`
		Amount           float64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	ent, err := pc.Purchases.CompletePurchase(userID, uint(setID), input.PaymentReference, input.Amount)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Created(c, fiber.Map{
		"question_set_id": ent.QuestionSetID,
		"granted_at":      ent.GrantedAt,
		"expires_at":      ent.ExpiresAt,
		"amount":          ent.Amount,
	})
}

// ListEntitlements returns the caller's entitlements with remaining validity.
func (pc *PaymentsController) ListEntitlements(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var entitlements []models.Entitlement
	if err := pc.DB.Where("user_id = ?", userID).
		Order("expires_at DESC").
		Find(&entitlements).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	now := time.Now()
	var result []fiber.Map
	for _, ent := range entitlements {
		remaining := time.Duration(0)
		if ent.Active(now) {
			remaining = ent.ExpiresAt.Sub(now)
		}
		result = append(result, fiber.Map{
			"question_set_id": ent.QuestionSetID,
			"granted_at":      ent.GrantedAt,
			"expires_at":      ent.ExpiresAt,
			"active":          ent.Active(now),
			"remaining_days":  int(remaining.Hours() / 24),
			"amount":          ent.Amount,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// GenerateCodes creates a batch of redeem codes. Admin only.
func (pc *PaymentsController) GenerateCodes(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var issuer models.User
	if err := pc.DB.First(&issuer, userID).Error; err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		QuestionSetID uint       `json:"question_set_id"`
		ValidityDays  int        `json:"validity_days"`
		Quantity      int        `json:"quantity"`
		ExpiresAt     *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	codes, err := pc.Redeems.GenerateCodes(input.QuestionSetID, input.ValidityDays,
		input.Quantity, input.ExpiresAt, &issuer)
	if err != nil {
		return serviceError(c, err)
	}

	var result []fiber.Map
	for _, code := range codes {
		result = append(result, fiber.Map{
			"code":            code.Code,
			"question_set_id": code.QuestionSetID,
			"validity_days":   code.ValidityDays,
			"expires_at":      code.ExpiresAt,
		})
	}

	return utils.Created(c, result)
}

// ListCodes returns issued codes with usage state, optionally filtered by
// question set.
func (pc *PaymentsController) ListCodes(c *fiber.Ctx) error {
	query := pc.DB.Model(&models.RedeemCode{})
	if setID := c.Query("question_set_id"); setID != "" {
		query = query.Where("question_set_id = ?", setID)
	}

	var codes []models.RedeemCode
	if err := query.Order("created_at DESC").Find(&codes).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var result []fiber.Map
	for _, code := range codes {
		result = append(result, fiber.Map{
			"code":            code.Code,
			"question_set_id": code.QuestionSetID,
			"validity_days":   code.ValidityDays,
			"expires_at":      code.ExpiresAt,
			"used":            code.Used,
			"used_by":         code.UsedBy,
			"used_at":         code.UsedAt,
			"created_by":      code.CreatedBy,
			"created_at":      code.CreatedAt,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}
