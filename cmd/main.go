package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"surge_detector/internal/api"
	"surge_detector/internal/config"
	"surge_detector/internal/database"
	"surge_detector/internal/service"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}

	// 로거 초기화
	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("로거 초기화 실패: %v", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	logger.Info("설정 로드 완료")

	// 데이터베이스 초기화
	if err := database.InitDB(&cfg.Database); err != nil {
		logger.Fatal("데이터베이스 초기화 실패", zap.Error(err))
	}
	defer database.Close()

	// 시장 데이터 클라이언트 생성
	marketClient := service.NewMarketClient(&cfg.KRX)

	// 기업 메타데이터는 없어도 분석은 가능하므로 실패해도 기동은 계속한다
	company, err := marketClient.LoadCompanyInfo()
	if err != nil {
		logger.Warn("기업 정보 로드 실패, 업종/주요제품 없이 진행", zap.Error(err))
		company = map[string]service.CompanyInfo{}
	} else {
		logger.Info("기업 정보 로드 완료", zap.Int("count", len(company)))
	}

	fetcher := service.NewSnapshotFetcher(marketClient, company, logger)
	newsClient := service.NewNewsClient(&cfg.Naver, logger)
	analyzer := service.NewAnalyzer(fetcher, newsClient, &cfg.Analyzer, logger)
	store := service.NewStore(database.GetDB(), cfg.Analyzer.BatchSize, logger)
	flow := service.NewSaveFlow(store)

	// Gin 모드 설정
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	handler := api.NewHandler(analyzer, store, flow, logger)
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		logger.Info("서버 시작", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("서버 시작 실패", zap.Error(err))
		}
	}()

	// 우아한 종료
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("서버를 종료하는 중...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("서버 강제 종료", zap.Error(err))
	}

	logger.Info("서버 종료 완료")
}

// initLogger 로거 초기화
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if err := os.MkdirAll("./logs", 0755); err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{
		"stdout",
		cfg.File,
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
