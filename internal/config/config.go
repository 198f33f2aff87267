package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 전역 설정 구조
type Config struct {
	Naver    NaverConfig    `mapstructure:"naver"`
	KRX      KRXConfig      `mapstructure:"krx"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Log      LogConfig      `mapstructure:"log"`
}

// NaverConfig 네이버 검색 API 설정
type NaverConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
	Timeout      int    `mapstructure:"timeout"`
	RatePerSec   int    `mapstructure:"rate_per_sec"`
}

// KRXConfig 시장 데이터 제공자 설정
type KRXConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	CorpListURL string `mapstructure:"corp_list_url"`
	Timeout     int    `mapstructure:"timeout"`
	Retry       int    `mapstructure:"retry"`
}

// DatabaseConfig 데이터베이스 설정
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ServerConfig 서버 설정
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AnalyzerConfig 분석 파이프라인 설정
type AnalyzerConfig struct {
	TopN             int `mapstructure:"top_n"`
	NewsDisplayCount int `mapstructure:"news_display_count"`
	Concurrency      int `mapstructure:"concurrency"`
	BatchSize        int `mapstructure:"batch_size"`
}

// LogConfig 로그 설정
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

var GlobalConfig *Config

// LoadConfig 설정 파일 로드
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("설정 파일 읽기 실패: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("설정 파일 파싱 실패: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	GlobalConfig = &config
	return &config, nil
}

// validateConfig 설정 검증 및 기본값 적용
func validateConfig(config *Config) error {
	// 자격 증명이 없으면 특징주 검색이 불가능하므로 기동 단계에서 거부한다
	if config.Naver.ClientID == "" || config.Naver.ClientSecret == "" {
		return fmt.Errorf("네이버 API Client ID / Client Secret을 설정해 주세요")
	}

	switch config.Database.Type {
	case "postgres", "mysql":
	case "sqlite":
		if config.Database.Path == "" {
			config.Database.Path = "stock_analysis.db"
		}
	default:
		return fmt.Errorf("데이터베이스 타입은 postgres, mysql, sqlite 중 하나여야 합니다")
	}

	if config.Naver.BaseURL == "" {
		config.Naver.BaseURL = "https://openapi.naver.com/v1/search/news.json"
	}
	if config.Naver.Timeout <= 0 {
		config.Naver.Timeout = 10
	}
	if config.Naver.RatePerSec <= 0 {
		config.Naver.RatePerSec = 10
	}
	if config.KRX.Timeout <= 0 {
		config.KRX.Timeout = 30
	}
	if config.Analyzer.TopN <= 0 {
		config.Analyzer.TopN = 40
	}
	if config.Analyzer.NewsDisplayCount <= 0 {
		config.Analyzer.NewsDisplayCount = 500
	}
	if config.Analyzer.Concurrency <= 0 {
		config.Analyzer.Concurrency = 5
	}
	if config.Analyzer.BatchSize <= 0 {
		config.Analyzer.BatchSize = 500
	}
	if config.Server.Port <= 0 {
		config.Server.Port = 8080
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.File == "" {
		config.Log.File = "./logs/app.log"
	}

	return nil
}

// GetDSN 데이터베이스 연결 문자열 반환
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Seoul",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		return c.Path
	default:
		return ""
	}
}
