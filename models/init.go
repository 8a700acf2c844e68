package models

import "gorm.io/gorm"

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&ContactList{},
		&MessageTemplate{},
		&Campaign{},
		&SendLog{},
		&ABTest{},
		&ABTestVariant{},
		&DripCampaign{},
		&DripStep{},
		&DripProgress{},
		&WarmupLog{},
		&ApiToken{},
	)
}
