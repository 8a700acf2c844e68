package models

import "gorm.io/gorm"

// ApiToken authenticates collaborator API calls.
type ApiToken struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Token    string `gorm:"uniqueIndex;not null" json:"-"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
