package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"license-relay-proxy/internal/config"
	"license-relay-proxy/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open 根据驱动名打开数据库连接
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverSQLite:
		// 创建数据目录
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate 自动迁移模型
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.License{}, &model.UsageLog{})
}

func InitDB(cfg *config.Config) error {
	var err error
	DB, err = Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	if cfg.SeedLicenseKey != "" {
		if err := Seed(DB, cfg.SeedLicenseKey, cfg.SeedLicenseCredits); err != nil {
			return fmt.Errorf("创建初始许可证失败: %w", err)
		}
	}
	return nil
}

// Seed 在许可证表为空时创建一个初始许可证
func Seed(db *gorm.DB, key string, credits int64) error {
	var count int64
	if err := db.Model(&model.License{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	license := &model.License{
		LicenseKey: key,
		IsActive:   true,
		Credits:    credits,
	}
	if err := db.Create(license).Error; err != nil {
		return err
	}

	slog.Info("seeded license", "license_key", key, "credits", credits)
	return nil
}

// Ping 检查数据库连接
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
