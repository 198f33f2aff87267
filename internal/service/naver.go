package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"surge_detector/internal/config"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// API 한 번에 요청 가능한 최대 건수와 start 파라미터 상한
	maxDisplayPerCall = 100
	maxStartValue     = 1000
	// 정상 호출 간 대기
	bulkCallInterval = 50 * time.Millisecond
	// 호출 실패 시 대기
	bulkRetryDelay = 500 * time.Millisecond
	// 종목별 검색 기본 대기/재시도
	targetedBaseDelay  = 300 * time.Millisecond
	targetedMaxRetries = 3
)

// pubDateFormats 허용하는 발행일 형식. 순서대로 시도해 첫 성공을 사용한다.
var pubDateFormats = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"20060102",
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// NewsArticle 정제된 뉴스 기사. PubDate는 YYYYMMDD로 정규화된 값.
type NewsArticle struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	PubDate string `json:"pub_date"`
	Link    string `json:"link"`
}

// newsResponse 네이버 뉴스 검색 API 응답
type newsResponse struct {
	Total        int        `json:"total"`
	Items        []newsItem `json:"items"`
	ErrorMessage string     `json:"errorMessage"`
	ErrorCode    string     `json:"errorCode"`
}

type newsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
	Link        string `json:"link"`
}

// NewsClient 네이버 뉴스 검색 API 클라이언트
type NewsClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewNewsClient 뉴스 검색 클라이언트 생성
func NewNewsClient(cfg *config.NaverConfig, logger *zap.Logger) *NewsClient {
	return &NewsClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      cfg.BaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		logger:  logger,
	}
}

// parsePubDate 발행일 문자열을 YYYYMMDD로 정규화. 실패 시 빈 문자열.
func parsePubDate(raw string) string {
	for _, format := range pubDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}

// stripHTMLTags 태그 제거 후 양끝 공백 정리
func stripHTMLTags(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// doGet 단일 페이지 요청. 전송 오류와 비정상 상태 코드는 err로 돌려주며
// 상태 코드는 항상 함께 반환한다(429 분기용).
func (c *NewsClient) doGet(ctx context.Context, query string, display, start int) (*newsResponse, int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(display))
	params.Set("start", strconv.Itoa(start))
	params.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("요청 전송 실패: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		// 오류 본문에 구조화된 메시지가 실려 올 수 있다
		var errResp newsResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.ErrorMessage != "" {
			return &errResp, httpResp.StatusCode,
				fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, errResp.ErrorMessage)
		}
		return nil, httpResp.StatusCode, fmt.Errorf("HTTP %d", httpResp.StatusCode)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("응답 파싱 실패: %w", err)
	}

	return &resp, httpResp.StatusCode, nil
}

// cleanItem 원시 응답 항목을 정제된 기사로 변환. 날짜 정규화 실패 시 ok=false.
func cleanItem(item newsItem) (NewsArticle, bool) {
	pubDate := parsePubDate(item.PubDate)
	if pubDate == "" {
		return NewsArticle{}, false
	}
	return NewsArticle{
		Title:   stripHTMLTags(item.Title),
		Summary: stripHTMLTags(item.Description),
		PubDate: pubDate,
		Link:    item.Link,
	}, true
}

// BulkSearch 키워드로 뉴스를 광범위하게 수집한다.
// 100건 단위로 페이지를 넘기며 start 상한(1000)에 닿으면 목표 미달이어도 멈춘다.
// 구조화된 오류 응답을 받으면 그때까지 수집한 결과를 그대로 반환한다.
func (c *NewsClient) BulkSearch(ctx context.Context, query string, wantCount int) ([]NewsArticle, error) {
	collected := make([]NewsArticle, 0, wantCount)

	numCalls := (wantCount + maxDisplayPerCall - 1) / maxDisplayPerCall
	if maxCalls := maxStartValue / maxDisplayPerCall; numCalls > maxCalls {
		numCalls = maxCalls
	}

	for i := 0; i < numCalls; i++ {
		start := 1 + i*maxDisplayPerCall
		if start > maxStartValue {
			break
		}
		display := wantCount - len(collected)
		if display <= 0 {
			break
		}
		if display > maxDisplayPerCall {
			display = maxDisplayPerCall
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return collected, err
		}

		resp, _, err := c.doGet(ctx, query, display, start)
		if err != nil {
			if resp != nil && resp.ErrorMessage != "" {
				// API가 명시적으로 거부한 쿼리는 더 진행하지 않는다
				c.logger.Error("뉴스 API 오류 응답",
					zap.String("query", query),
					zap.String("error_message", resp.ErrorMessage))
				return collected, nil
			}
			c.logger.Warn("뉴스 API 호출 실패, 다음 페이지로 진행",
				zap.String("query", query),
				zap.Int("start", start),
				zap.Error(err))
			time.Sleep(bulkRetryDelay)
			continue
		}

		if len(resp.Items) == 0 {
			break
		}

		for _, item := range resp.Items {
			article, ok := cleanItem(item)
			if !ok {
				// 알려진 형식으로 파싱되지 않는 발행일은 버린다
				continue
			}
			collected = append(collected, article)
			if len(collected) >= wantCount {
				return collected, nil
			}
		}

		time.Sleep(bulkCallInterval)
	}

	return collected, nil
}

// SearchStockArticles 종목명으로 당일 기사를 정밀 검색한다.
// 최대 3회 시도, 429는 대기 시간을 늘려 가며 재시도. 실패해도 오류를 올리지 않고
// 빈 목록을 반환한다.
func (c *NewsClient) SearchStockArticles(ctx context.Context, stockName, targetDate string, maxCount int, matchDate bool) []NewsArticle {
	delay := targetedBaseDelay

	for attempt := 0; attempt < targetedMaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return []NewsArticle{}
		}
		time.Sleep(delay)

		resp, status, err := c.doGet(ctx, stockName, maxDisplayPerCall, 1)
		if err != nil {
			if status == http.StatusTooManyRequests {
				delay = delay * 3 / 2
				time.Sleep(delay)
				continue
			}
			c.logger.Warn("종목 기사 검색 실패",
				zap.String("stock", stockName),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			time.Sleep(delay * time.Duration(attempt+1))
			continue
		}

		result := make([]NewsArticle, 0, maxCount)
		for _, item := range resp.Items {
			article, ok := cleanItem(item)
			if !ok {
				continue
			}
			if matchDate && article.PubDate != targetDate {
				continue
			}
			result = append(result, article)
			if len(result) >= maxCount {
				break
			}
		}
		return result
	}

	return []NewsArticle{}
}
