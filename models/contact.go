package models

import "gorm.io/gorm"

// Contact is one recipient profile. Profiles are free-form: whatever the
// scraper or importer captured (phone, username, first_name, ...). String
// fields double as template variables.
type Contact map[string]interface{}

// Recipient returns the identifier used to address this contact: phone
// first, then username. Empty when neither is present.
func (c Contact) Recipient() string {
	if phone, ok := c["phone"].(string); ok && phone != "" {
		return phone
	}
	if username, ok := c["username"].(string); ok && username != "" {
		return username
	}
	return ""
}

// ContactList is an ordered list of recipient profiles.
type ContactList struct {
	gorm.Model
	Name     string    `gorm:"not null" json:"name"`
	Contacts []Contact `gorm:"type:jsonb;serializer:json" json:"contacts"`
}

// RecipientCount counts contacts that can actually be addressed.
func (l *ContactList) RecipientCount() int {
	n := 0
	for _, c := range l.Contacts {
		if c.Recipient() != "" {
			n++
		}
	}
	return n
}
