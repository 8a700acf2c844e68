package models

import (
	"time"

	"gorm.io/gorm"
)

// Drip campaign statuses.
const (
	DripDraft     = "draft"
	DripActive    = "active"
	DripPaused    = "paused"
	DripCompleted = "completed"
)

// Per-recipient drip progression statuses. completed, failed and replied
// are terminal; a row never mutates once it leaves pending.
const (
	ProgressPending   = "pending"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
	ProgressReplied   = "replied"
)

// DripCampaign is a multi-step message sequence sent from a single
// account, with reply-based early termination per recipient.
type DripCampaign struct {
	gorm.Model
	Name      string `gorm:"index" json:"name"`
	ListID    uint   `gorm:"not null" json:"list_id"`
	AccountID uint   `gorm:"not null" json:"account_id"`
	Status    string `gorm:"default:'draft'" json:"status"`

	Steps    []DripStep     `gorm:"constraint:OnDelete:CASCADE" json:"steps"`
	Progress []DripProgress `gorm:"constraint:OnDelete:CASCADE" json:"progress,omitempty"`
}

// DripStep is one step of the sequence. StepOrder is unique per campaign;
// DelayMinutes counts from the previous step (or from enrollment).
type DripStep struct {
	gorm.Model
	DripCampaignID uint `gorm:"index:idx_drip_step_order,unique" json:"drip_campaign_id"`
	TemplateID     uint `gorm:"not null" json:"template_id"`
	DelayMinutes   int  `gorm:"default:0" json:"delay_minutes"`
	StepOrder      int  `gorm:"index:idx_drip_step_order,unique" json:"step_order"`
}

// DripProgress tracks one enrolled recipient. Created at enrollment with
// the first step's order and next_execution_time = enrollment time +
// first step's delay; mutated only by the drip processor.
type DripProgress struct {
	gorm.Model
	DripCampaignID    uint       `gorm:"index" json:"drip_campaign_id"`
	ContactData       Contact    `gorm:"type:jsonb;serializer:json" json:"contact_data"`
	CurrentStepOrder  int        `gorm:"default:0" json:"current_step_order"`
	NextExecutionTime *time.Time `gorm:"index" json:"next_execution_time"`
	Status            string     `gorm:"default:'pending';index" json:"status"`
}
