package model

import "time"

// DailySends 每日发送统计
type DailySends struct {
	Date          time.Time `json:"date"`
	Sends         int64     `json:"sends"`
	Licenses      int64     `json:"licenses"`
	MessageLength int64     `json:"message_length"`
}

// LicenseStatistics 许可证与额度统计
type LicenseStatistics struct {
	TotalLicenses      int64 `json:"total_licenses"`
	ActiveLicenses     int64 `json:"active_licenses"`
	InactiveLicenses   int64 `json:"inactive_licenses"`
	BoundLicenses      int64 `json:"bound_licenses"`
	OutstandingCredits int64 `json:"outstanding_credits"`

	// 发送统计只在使用记录存于数据库时可用
	SendsTracked bool         `json:"sends_tracked"`
	TotalSends   int64        `json:"total_sends"`
	DailySends   []DailySends `json:"daily_sends,omitempty"`
}

// GetBindingRate 已绑定设备的许可证占比
func (ls *LicenseStatistics) GetBindingRate() float64 {
	if ls.TotalLicenses == 0 {
		return 0
	}
	return float64(ls.BoundLicenses) / float64(ls.TotalLicenses)
}
