package models

import "gorm.io/gorm"

// HomepageContent is the admin-managed landing page content. A single row is
// kept; updates overwrite it.
type HomepageContent struct {
	gorm.Model
	Title        string
	Subtitle     string
	BannerURL    string
	Announcement string
	UpdatedBy    uint
}
