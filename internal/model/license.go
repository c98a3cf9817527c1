package model

import (
	"time"
)

// License 许可证记录，BoundDevice 在首次验证时绑定，之后不可更改
type License struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	LicenseKey  string    `json:"license_key" gorm:"column:license_key;uniqueIndex;not null"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active;not null"`
	BoundDevice *string   `json:"hwid" gorm:"column:hwid"`
	Credits     int64     `json:"credits" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsBound 是否已绑定设备
func (l *License) IsBound() bool {
	return l.BoundDevice != nil && *l.BoundDevice != ""
}
