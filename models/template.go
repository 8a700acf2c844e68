package models

import "gorm.io/gorm"

// MessageTemplate holds message content with {variable} placeholders.
type MessageTemplate struct {
	gorm.Model
	Name     string  `gorm:"not null" json:"name"`
	Content  string  `gorm:"not null" json:"content"`
	MediaURL *string `json:"media_url"`
}
