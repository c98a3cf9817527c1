package usagelog

import (
	"context"
	"fmt"
	"time"

	"license-relay-proxy/internal/model"

	"gorm.io/gorm"
)

const BackendDB = "db"

// DBWriter stores usage entries in the relational usage_logs table.
type DBWriter struct {
	db *gorm.DB
}

var _ Writer = (*DBWriter)(nil)

func NewDBWriter(db *gorm.DB) *DBWriter {
	return &DBWriter{db: db}
}

func (w *DBWriter) Backend() string { return BackendDB }

func (w *DBWriter) Append(ctx context.Context, entry *model.UsageLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := w.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("usagelog: insert: %w", err)
	}
	return nil
}

// List 分页获取使用记录，licenseKey 为空时返回全部
func (w *DBWriter) List(ctx context.Context, licenseKey string, page, pageSize int) ([]model.UsageLog, int64, error) {
	var logs []model.UsageLog
	var total int64

	db := w.db.WithContext(ctx).Model(&model.UsageLog{})
	if licenseKey != "" {
		db = db.Where("license_key = ?", licenseKey)
	}

	// 获取总数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 获取分页数据
	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// SendStatistics 统计发送总数，since 之后的发送按天分组
func (w *DBWriter) SendStatistics(ctx context.Context, since time.Time) (int64, []model.DailySends, error) {
	db := w.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.UsageLog{}).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("usagelog: count sends: %w", err)
	}

	// 获取每日发送统计
	var rows []struct {
		Day           string
		Sends         int64
		Licenses      int64
		MessageLength int64
	}
	if err := db.Model(&model.UsageLog{}).
		Select("DATE(created_at) as day, COUNT(*) as sends, COUNT(DISTINCT license_key) as licenses, COALESCE(SUM(message_length), 0) as message_length").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return 0, nil, fmt.Errorf("usagelog: daily sends: %w", err)
	}

	daily := make([]model.DailySends, 0, len(rows))
	for _, r := range rows {
		if len(r.Day) < len("2006-01-02") {
			continue
		}
		day, err := time.Parse("2006-01-02", r.Day[:10])
		if err != nil {
			continue
		}
		daily = append(daily, model.DailySends{
			Date:          day,
			Sends:         r.Sends,
			Licenses:      r.Licenses,
			MessageLength: r.MessageLength,
		})
	}
	return total, daily, nil
}
