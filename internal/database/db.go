package database

import (
	"fmt"
	"surge_detector/internal/config"
	"surge_detector/internal/models"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	dsn := cfg.GetDSN()

	switch cfg.Type {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("지원하지 않는 데이터베이스 타입: %s", cfg.Type)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}
	var err error
	DB, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		return err
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("데이터베이스 연결 획득 실패: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("데이터베이스 연결 테스트 실패: %w", err)
	}

	// 앱 기동 시 stock_analysis 테이블 생성/컬럼 보강
	if err := autoMigrate(); err != nil {
		return fmt.Errorf("데이터베이스 마이그레이션 실패: %w", err)
	}

	return nil
}

// autoMigrate 테이블 스키마 자동 반영
func autoMigrate() error {
	return DB.AutoMigrate(
		&models.StockAnalysis{},
	)
}

// Close 데이터베이스 연결 종료
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB 데이터베이스 인스턴스 반환
func GetDB() *gorm.DB {
	return DB
}
