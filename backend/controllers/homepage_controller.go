package controllers

import (
	"errors"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HomepageController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewHomepageController(db *gorm.DB, cfg *config.Config) *HomepageController {
	return &HomepageController{DB: db, Cfg: cfg}
}

// GetHomepage returns the landing page content. An empty default is returned
// before an admin has written anything.
func (hc *HomepageController) GetHomepage(c *fiber.Ctx) error {
	var content models.HomepageContent
	if err := hc.DB.Order("updated_at DESC").First(&content).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.InternalServerError(c, "Could not query database")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"title":        content.Title,
		"subtitle":     content.Subtitle,
		"banner_url":   content.BannerURL,
		"announcement": content.Announcement,
	})
}

// UpdateHomepage overwrites the landing page content. Admin only.
func (hc *HomepageController) UpdateHomepage(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, hc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Title        string `json:"title"`
		Subtitle     string `json:"subtitle"`
		BannerURL    string `json:"banner_url"`
		Announcement string `json:"announcement"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var content models.HomepageContent
	if err := hc.DB.Order("updated_at DESC").First(&content).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.InternalServerError(c, "Could not query database")
		}
	}

	content.Title = input.Title
	content.Subtitle = input.Subtitle
	content.BannerURL = input.BannerURL
	content.Announcement = input.Announcement
	content.UpdatedBy = userID

	if err := hc.DB.Save(&content).Error; err != nil {
		return utils.InternalServerError(c, "Could not save homepage content")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Homepage updated",
	})
}
