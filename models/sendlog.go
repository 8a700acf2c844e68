package models

import (
	"time"

	"gorm.io/gorm"
)

// Send outcome statuses.
const (
	SendStatusSent    = "sent"
	SendStatusFailed  = "failed"
	SendStatusSkipped = "skipped"
)

// SendLog is the immutable record of one delivery attempt. Exactly one
// row is written per processed task (or per drip step attempt). It is the
// audit trail and the campaign-completion counter.
//
// CampaignID is nil for drip sends; CampaignRef then carries a synthetic
// "drip_<campaign>_<progress>" reference instead.
type SendLog struct {
	gorm.Model
	CampaignID   *uint     `gorm:"index" json:"campaign_id"`
	CampaignRef  string    `gorm:"index" json:"campaign_ref,omitempty"`
	AccountID    *uint     `gorm:"index" json:"account_id"`
	Recipient    string    `gorm:"not null" json:"recipient"`
	Status       string    `gorm:"not null" json:"status"`
	ErrorMessage *string   `json:"error_message"`
	Timestamp    time.Time `gorm:"autoCreateTime" json:"timestamp"`
}
