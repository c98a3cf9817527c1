package model

import "time"

// UsageLog 每次转发消息后写入的使用记录
type UsageLog struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	LicenseKey    string    `json:"license_key" gorm:"index;not null"`
	ProjectID     string    `json:"project_id" gorm:"column:project_id"`
	MessageLength int       `json:"message_length"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}
