package service

import (
	"errors"
	"fmt"
	"surge_detector/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrAlreadyExists 해당 날짜의 데이터가 이미 저장되어 있음.
// 호출자가 덮어쓰기 여부를 확인한 뒤 overwrite=true로 재시도해야 한다.
var ErrAlreadyExists = errors.New("already_exists")

// ErrCountMismatch 저장 후 재확인한 건수가 입력과 다름. 데이터는 기록되었지만
// 해당 날짜의 결과는 신뢰할 수 없는 상태로 취급해야 한다.
var ErrCountMismatch = errors.New("저장 건수 불일치")

// Store 분석 결과 저장소. 날짜 단위로 배치 전체를 관리한다.
type Store struct {
	db        *gorm.DB
	batchSize int
	logger    *zap.Logger
}

// NewStore 저장소 생성
func NewStore(db *gorm.DB, batchSize int, logger *zap.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Store{
		db:        db,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Save 분석 결과 저장. 같은 날짜의 기존 배치는 overwrite=true일 때만
// 한 트랜잭션 안에서 삭제 후 재삽입된다. 반환값은 저장된 행 수.
func (s *Store) Save(results []models.StockAnalysis, overwrite bool) (int, error) {
	if len(results) == 0 {
		return 0, fmt.Errorf("저장할 데이터가 없습니다")
	}
	date := results[0].Date

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.StockAnalysis{}).
			Where("date = ?", date).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("기존 데이터 확인 실패: %w", err)
		}

		if existing > 0 {
			if !overwrite {
				return ErrAlreadyExists
			}
			if err := tx.Where("date = ?", date).
				Delete(&models.StockAnalysis{}).Error; err != nil {
				return fmt.Errorf("기존 데이터 삭제 실패: %w", err)
			}
			s.logger.Info("기존 데이터 삭제",
				zap.String("date", date),
				zap.Int64("deleted", existing))
		}

		if err := tx.CreateInBatches(results, s.batchSize).Error; err != nil {
			return fmt.Errorf("데이터 저장 실패: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// 부분 쓰기나 키 충돌로 조용히 줄어든 경우를 잡기 위해 저장 후 재확인
	var saved int64
	if err := s.db.Model(&models.StockAnalysis{}).
		Where("date = ?", date).
		Count(&saved).Error; err != nil {
		return 0, fmt.Errorf("저장 결과 확인 실패: %w", err)
	}
	if int(saved) != len(results) {
		return int(saved), fmt.Errorf("%w: 입력 %d건, 저장 %d건",
			ErrCountMismatch, len(results), saved)
	}

	s.logger.Info("데이터베이스 저장 완료",
		zap.String("date", date),
		zap.Int64("saved", saved))
	return int(saved), nil
}

// SavedDates 저장된 날짜 목록(내림차순)
func (s *Store) SavedDates() ([]string, error) {
	var dates []string
	err := s.db.Model(&models.StockAnalysis{}).
		Distinct("date").
		Order("date desc").
		Pluck("date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("저장 날짜 조회 실패: %w", err)
	}
	return dates, nil
}

// GetByDate 특정 날짜의 분석 결과 조회
func (s *Store) GetByDate(date string) ([]models.StockAnalysis, error) {
	var rows []models.StockAnalysis
	err := s.db.Where("date = ?", date).
		Order("change_rate desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("데이터 조회 실패: %w", err)
	}
	return rows, nil
}

// GetByDateRange 기간별 분석 결과 조회
func (s *Store) GetByDateRange(startDate, endDate string) ([]models.StockAnalysis, error) {
	var rows []models.StockAnalysis
	err := s.db.Where("date BETWEEN ? AND ?", startDate, endDate).
		Order("date asc").
		Order("change_rate desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("데이터 조회 실패: %w", err)
	}
	return rows, nil
}
