package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"surge_detector/internal/config"
	"surge_detector/internal/models"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeaturedQuery 대량 뉴스 검색에 사용하는 기본 키워드
const FeaturedQuery = "특징주"

var datePattern = regexp.MustCompile(`^\d{8}$`)

// NewsSearcher 분석 파이프라인이 요구하는 뉴스 검색 동작
type NewsSearcher interface {
	BulkSearch(ctx context.Context, query string, wantCount int) ([]NewsArticle, error)
	SearchStockArticles(ctx context.Context, stockName, targetDate string, maxCount int, matchDate bool) []NewsArticle
}

// Analyzer 급등주+특징주 분석 파이프라인
type Analyzer struct {
	fetcher *SnapshotFetcher
	news    NewsSearcher
	config  *config.AnalyzerConfig
	logger  *zap.Logger
}

// AnalysisResult 하루치 분석 결과
type AnalysisResult struct {
	Date            string                 `json:"date"`
	TopN            int                    `json:"top_n"`
	Results         []models.StockAnalysis `json:"results"`
	MarketRowCount  int                    `json:"market_row_count"`
	ArticlesOnDate  int                    `json:"articles_on_date"`
	KeywordMatches  int                    `json:"keyword_matches"`
	FeaturedCount   int                    `json:"featured_count"`
	SkippedFeatured []string               `json:"skipped_featured"` // 시장 데이터에 없어 건너뛴 특징주
}

// NewAnalyzer 분석기 생성
func NewAnalyzer(fetcher *SnapshotFetcher, news NewsSearcher, cfg *config.AnalyzerConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		fetcher: fetcher,
		news:    news,
		config:  cfg,
		logger:  logger,
	}
}

// ValidateDate YYYYMMDD 형식 및 실제 달력 날짜 검증
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return fmt.Errorf("날짜는 YYYYMMDD 8자리여야 합니다: %q", date)
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return fmt.Errorf("존재하지 않는 날짜입니다: %q", date)
	}
	return nil
}

// Run 하루치 분석 전체 실행: 스냅샷 → 뉴스 수집 → 특징주 추출 → 병합
func (a *Analyzer) Run(ctx context.Context, date string, topN, newsCount int) (*AnalysisResult, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = a.config.TopN
	}
	if newsCount <= 0 {
		newsCount = a.config.NewsDisplayCount
	}

	a.logger.Info("분석 시작",
		zap.String("date", date),
		zap.Int("top_n", topN),
		zap.Int("news_count", newsCount))

	rows, err := a.fetcher.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}

	articles, err := a.news.BulkSearch(ctx, FeaturedQuery, newsCount)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if !seen[row.Name] {
			seen[row.Name] = true
			names = append(names, row.Name)
		}
	}

	extracted := ExtractFeaturedStocks(articles, date, names)
	if extracted.ArticlesOnDate == 0 {
		a.logger.Warn("대상 날짜의 기사를 찾지 못했습니다", zap.String("date", date))
	} else {
		a.logger.Info("특징주 기사 추출 완료",
			zap.Int("articles_on_date", extracted.ArticlesOnDate),
			zap.Int("keyword_matches", extracted.KeywordMatches),
			zap.Int("featured_stocks", len(extracted.Featured)))
	}

	merged, skipped, err := a.Merge(ctx, date, rows, topN, extracted.Featured)
	if err != nil {
		return nil, err
	}

	a.logger.Info("분석 완료",
		zap.String("date", date),
		zap.Int("result_count", len(merged)))

	return &AnalysisResult{
		Date:            date,
		TopN:            topN,
		Results:         merged,
		MarketRowCount:  len(rows),
		ArticlesOnDate:  extracted.ArticlesOnDate,
		KeywordMatches:  extracted.KeywordMatches,
		FeaturedCount:   len(extracted.Featured),
		SkippedFeatured: skipped,
	}, nil
}

// mergeCandidate 병합 단계에서 확정된 한 종목
type mergeCandidate struct {
	row    MarketRow
	remark string
	first  *NewsArticle // 특징주 추출 단계에서 캡처된 기사(슬롯 1)
}

// Merge 등락률 상위 N개와 특징주를 하나의 결과로 병합한다.
// 동일 입력에 대해 결정적이며, 종목명 기준으로 중복을 제거한다.
func (a *Analyzer) Merge(ctx context.Context, date string, rows []MarketRow, topN int, featured map[string][]NewsArticle) ([]models.StockAnalysis, []string, error) {
	sorted := make([]MarketRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChangeRate > sorted[j].ChangeRate
	})
	if topN > len(sorted) {
		topN = len(sorted)
	}

	processed := make(map[string]bool)
	var candidates []mergeCandidate

	// 1단계: 등락률 상위 N개
	for _, row := range sorted[:topN] {
		if processed[row.Name] {
			continue
		}
		processed[row.Name] = true

		cand := mergeCandidate{row: row}
		if arts, ok := featured[row.Name]; ok && len(arts) > 0 {
			cand.remark = fmt.Sprintf("top%d+특징주", topN)
			cand.first = &arts[0]
		} else {
			cand.remark = fmt.Sprintf("top%d", topN)
		}
		candidates = append(candidates, cand)
	}

	// 2단계: 상위 N개에 없는 특징주. 맵 순회 순서가 무작위이므로
	// 이름순으로 고정해 실행마다 같은 결과를 낸다.
	featuredNames := make([]string, 0, len(featured))
	for name := range featured {
		featuredNames = append(featuredNames, name)
	}
	sort.Strings(featuredNames)

	var skipped []string
	for _, name := range featuredNames {
		if processed[name] {
			continue
		}
		row, ok := findRowByName(rows, name)
		if !ok {
			// 배치를 중단하지 않고 건별로 보고만 한다
			a.logger.Error("특징주의 시장 데이터를 찾을 수 없습니다",
				zap.String("date", date),
				zap.String("stock", name))
			skipped = append(skipped, name)
			continue
		}
		processed[name] = true
		candidates = append(candidates, mergeCandidate{
			row:    row,
			remark: "특징주",
			first:  &featured[name][0],
		})
	}

	// 종목별 기사 검색은 독립적이므로 병렬로 수행하되 슬롯 인덱스로
	// 결과 위치를 고정해 순차 실행과 동일한 출력을 보장한다.
	results := make([]models.StockAnalysis, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Concurrency)

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			rec := buildRecord(date, cand.row, cand.remark)

			startSlot := 1
			need := 5
			if cand.first != nil {
				rec.SetArticle(1, cand.first.Title, cand.first.Summary, cand.first.Link)
				startSlot = 2
				need = 4
			}

			articles := a.news.SearchStockArticles(gctx, cand.row.Name, date, need, true)
			for j, art := range articles {
				rec.SetArticle(startSlot+j, art.Title, art.Summary, art.Link)
			}

			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// 최종 정렬은 비고와 무관하게 등락률 내림차순
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ChangeRate > results[j].ChangeRate
	})

	return results, skipped, nil
}

// findRowByName 종목명으로 시장 행 조회. 중복 시 조회 순서상 첫 행.
func findRowByName(rows []MarketRow, name string) (MarketRow, bool) {
	for _, row := range rows {
		if row.Name == name {
			return row, true
		}
	}
	return MarketRow{}, false
}

// buildRecord 시장 행을 결과 레코드로 변환
func buildRecord(date string, row MarketRow, remark string) models.StockAnalysis {
	return models.StockAnalysis{
		Date:       date,
		Ticker:     row.Ticker,
		Name:       row.Name,
		Industry:   row.Industry,
		Products:   row.Products,
		Open:       row.Open,
		High:       row.High,
		Low:        row.Low,
		Close:      row.Close,
		ChangeRate: row.ChangeRate,
		Volume:     row.Volume,
		Turnover:   row.Turnover,
		Market:     row.Market,
		Remark:     remark,
	}
}
