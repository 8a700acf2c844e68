package models

import "gorm.io/gorm"

// ABTest is a named set of weighted template variants. Weights need not
// sum to 100; selection is proportional.
type ABTest struct {
	gorm.Model
	Name     string          `gorm:"not null" json:"name"`
	Status   string          `gorm:"default:'draft'" json:"status"` // draft, running, completed
	Variants []ABTestVariant `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
}

type ABTestVariant struct {
	gorm.Model
	ABTestID   uint `gorm:"index" json:"ab_test_id"`
	TemplateID uint `gorm:"not null" json:"template_id"`
	Weight     int  `gorm:"default:50" json:"weight"`
	SentCount  int  `gorm:"default:0" json:"sent_count"`
	ReplyCount int  `gorm:"default:0" json:"reply_count"`
}
