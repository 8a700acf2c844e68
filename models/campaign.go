package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses. Transitions are the only mutation a campaign sees.
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignStopped   = "stopped"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
)

// RotationStep assigns a template to a fixed number of consecutive
// recipients before the rotation moves on to the next template.
type RotationStep struct {
	TemplateID uint `json:"template_id"`
	Count      int  `json:"count"`
}

// CampaignConfig is the configuration blob frozen at start time.
type CampaignConfig struct {
	ListID        uint           `json:"list_id"`
	TemplateID    *uint          `json:"template_id,omitempty"`
	ABTestID      *uint          `json:"ab_test_id,omitempty"`
	RotationSteps []RotationStep `json:"rotation_steps,omitempty"`
	AccountIDs    []uint         `json:"account_ids"`
	Delay         float64        `json:"delay"`
}

// Campaign represents one outbound messaging campaign.
type Campaign struct {
	gorm.Model
	Name         string         `gorm:"not null" json:"name"`
	Status       string         `gorm:"default:'draft'" json:"status"`
	Config       CampaignConfig `gorm:"type:jsonb;serializer:json" json:"config"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
}
