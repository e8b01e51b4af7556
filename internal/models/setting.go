package models

import "time"

// AppSetting is a key-value config row maintained through an
// idempotent upsert.
type AppSetting struct {
	Key       string    `gorm:"size:255;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AppSetting) TableName() string {
	return "app_settings"
}
