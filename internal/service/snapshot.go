package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoMarketData 해당 날짜에 유효한 시장 데이터가 전혀 없음. 당일 분석은 중단된다.
var ErrNoMarketData = errors.New("조회 가능한 시장 데이터가 없습니다")

// MarketRow 스냅샷의 한 행. 종목명 해석과 메타데이터 병합이 끝난 상태.
type MarketRow struct {
	Ticker     string
	Name       string
	Industry   string
	Products   string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	ChangeRate float64
	Volume     int64
	Turnover   int64
	Market     string
}

// SnapshotFetcher 세 개 시장의 일봉을 하나의 스냅샷으로 합친다
type SnapshotFetcher struct {
	client  *MarketClient
	company map[string]CompanyInfo
	logger  *zap.Logger
}

// NewSnapshotFetcher 스냅샷 페처 생성. company는 기동 시 로드된 읽기 전용 맵.
func NewSnapshotFetcher(client *MarketClient, company map[string]CompanyInfo, logger *zap.Logger) *SnapshotFetcher {
	return &SnapshotFetcher{
		client:  client,
		company: company,
		logger:  logger,
	}
}

// Fetch 특정 날짜의 전체 시장 스냅샷 조회.
// 개별 시장의 실패는 건너뛰고 나머지를 계속하며, 전 시장이 비면 ErrNoMarketData.
func (f *SnapshotFetcher) Fetch(ctx context.Context, date string) ([]MarketRow, error) {
	segments := make([][]MarketRow, len(Markets))

	g, _ := errgroup.WithContext(ctx)
	for i, market := range Markets {
		i, market := i, market
		g.Go(func() error {
			rows, err := f.fetchSegment(date, market)
			if err != nil {
				// 한 시장의 오류로 전체 조회를 실패시키지 않는다
				f.logger.Error("시장 데이터 조회 실패",
					zap.String("date", date),
					zap.String("market", market),
					zap.Error(err))
				return nil
			}
			segments[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []MarketRow
	for _, rows := range segments {
		combined = append(combined, rows...)
	}

	if len(combined) == 0 {
		f.logger.Warn("전체 시장 데이터가 비어 있습니다", zap.String("date", date))
		return nil, ErrNoMarketData
	}

	return combined, nil
}

// fetchSegment 단일 시장 조회: 일봉 + 종목명 해석 + 메타데이터 병합
func (f *SnapshotFetcher) fetchSegment(date, market string) ([]MarketRow, error) {
	raw, err := f.client.GetOHLCV(date, market)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		f.logger.Warn("해당 시장에 데이터가 없습니다",
			zap.String("date", date),
			zap.String("market", market))
		return nil, nil
	}

	names, err := f.client.GetTickerNames(market)
	if err != nil {
		return nil, err
	}

	rows := make([]MarketRow, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		name := names[r.Ticker]
		// 등락률 결측 또는 종목명 미해석 행은 이후 단계에서 쓸 수 없다
		if !r.HasChangeRate || name == "" {
			dropped++
			continue
		}
		row := MarketRow{
			Ticker:     r.Ticker,
			Name:       name,
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			ChangeRate: r.ChangeRate,
			Volume:     r.Volume,
			Turnover:   r.Turnover,
			Market:     market,
		}
		if info, ok := f.company[r.Ticker]; ok {
			row.Industry = info.Industry
			row.Products = info.Products
		}
		rows = append(rows, row)
	}

	if dropped > 0 {
		f.logger.Debug("유효하지 않은 행 제외",
			zap.String("market", market),
			zap.Int("dropped", dropped))
	}

	return rows, nil
}
