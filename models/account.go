package models

import (
	"time"

	"gorm.io/gorm"
)

// Account health statuses as reported by health checks and send attempts.
const (
	HealthAlive           = "alive"
	HealthSpamBlock       = "spam_block"
	HealthFloodWait       = "flood_wait"
	HealthBanned          = "banned"
	HealthRestricted      = "restricted"
	HealthUnknown         = "unknown"
	HealthError           = "error"
	HealthConnectionError = "connection_error"
)

// Account is a sending identity: API credentials plus an encrypted
// session blob for the messaging gateway.
type Account struct {
	gorm.Model
	APIID       string `gorm:"not null" json:"api_id"`
	APIHash     string `gorm:"not null" json:"-"`
	PhoneNumber string `gorm:"uniqueIndex;not null" json:"phone_number"`
	// Encrypted at rest, see utils.Encrypt
	SessionString *string `json:"-"`
	ProxyURL      *string `json:"proxy_url"`
	IsActive      bool    `gorm:"default:true" json:"is_active"`

	WarmupEnabled bool       `gorm:"default:false" json:"warmup_enabled"`
	WarmupLastRun *time.Time `json:"warmup_last_run"`

	HealthStatus    string     `gorm:"default:'unknown'" json:"health_status"`
	LastHealthCheck *time.Time `json:"last_health_check"`
}

// WarmupLog records a single warm-up action performed by an account.
type WarmupLog struct {
	gorm.Model
	AccountID uint   `gorm:"not null;index" json:"account_id"`
	Action    string `gorm:"not null" json:"action"` // read, join, react, online, error
	Details   string `json:"details"`
}
