// Package store reads and mutates license records. Credit changes are single
// conditional UPDATE statements so concurrent requests cannot overspend a balance.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"license-relay-proxy/internal/database"
	"license-relay-proxy/internal/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store: license not found")

// LicenseStore is the persistence boundary used by the license service.
type LicenseStore interface {
	Get(ctx context.Context, licenseKey string) (*model.License, error)
	// BindDevice sets the device only while the license is unbound. It reports
	// whether the binding was written.
	BindDevice(ctx context.Context, licenseKey, deviceID string) (bool, error)
	// DebitCredit subtracts one credit if the balance is above zero. It reports
	// whether a credit was taken.
	DebitCredit(ctx context.Context, licenseKey string) (bool, error)
	// AddCredits adjusts the balance by amount and returns the stored result.
	AddCredits(ctx context.Context, licenseKey string, amount int64) (int64, error)
	Ping(ctx context.Context) error
}

var _ LicenseStore = (*GormLicenseStore)(nil)

type GormLicenseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLicenseStore(db *gorm.DB) *GormLicenseStore {
	return &GormLicenseStore{db: db, now: time.Now}
}

func (s *GormLicenseStore) Get(ctx context.Context, licenseKey string) (*model.License, error) {
	var license model.License
	err := s.db.WithContext(ctx).Where("license_key = ?", licenseKey).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get license: %w", err)
	}
	return &license, nil
}

func (s *GormLicenseStore) BindDevice(ctx context.Context, licenseKey, deviceID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.License{}).
		Where("license_key = ? AND (hwid IS NULL OR hwid = '')", licenseKey).
		Updates(map[string]interface{}{
			"hwid":       deviceID,
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("store: bind device: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormLicenseStore) DebitCredit(ctx context.Context, licenseKey string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.License{}).
		Where("license_key = ? AND credits > 0", licenseKey).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", 1),
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("store: debit credit: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormLicenseStore) AddCredits(ctx context.Context, licenseKey string, amount int64) (int64, error) {
	db := s.db.WithContext(ctx)

	result := db.Model(&model.License{}).
		Where("license_key = ?", licenseKey).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", amount),
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("store: add credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrNotFound
	}

	var license model.License
	if err := db.Select("credits").Where("license_key = ?", licenseKey).First(&license).Error; err != nil {
		return 0, fmt.Errorf("store: read credits: %w", err)
	}
	return license.Credits, nil
}

func (s *GormLicenseStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// Statistics 汇总许可证与额度情况
func (s *GormLicenseStore) Statistics(ctx context.Context) (*model.LicenseStatistics, error) {
	db := s.db.WithContext(ctx)
	stats := &model.LicenseStatistics{}

	// 统计许可证总数
	if err := db.Model(&model.License{}).Count(&stats.TotalLicenses).Error; err != nil {
		return nil, fmt.Errorf("store: count licenses: %w", err)
	}

	// 统计活跃许可证数
	if err := db.Model(&model.License{}).Where("is_active = ?", true).Count(&stats.ActiveLicenses).Error; err != nil {
		return nil, fmt.Errorf("store: count active licenses: %w", err)
	}
	stats.InactiveLicenses = stats.TotalLicenses - stats.ActiveLicenses

	// 统计已绑定设备的许可证数
	if err := db.Model(&model.License{}).Where("hwid IS NOT NULL AND hwid <> ''").Count(&stats.BoundLicenses).Error; err != nil {
		return nil, fmt.Errorf("store: count bound licenses: %w", err)
	}

	// 剩余额度总和
	if err := db.Model(&model.License{}).
		Select("COALESCE(SUM(credits), 0)").
		Where("is_active = ?", true).
		Scan(&stats.OutstandingCredits).Error; err != nil {
		return nil, fmt.Errorf("store: sum credits: %w", err)
	}

	return stats, nil
}
