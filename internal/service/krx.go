package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"surge_detector/internal/config"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// 시장 구분
const (
	MarketKOSPI  = "KOSPI"
	MarketKOSDAQ = "KOSDAQ"
	MarketKONEX  = "KONEX"
)

// Markets 조회 대상 시장. 스냅샷 결합 순서도 이 순서를 따른다.
var Markets = []string{MarketKOSPI, MarketKOSDAQ, MarketKONEX}

// MarketClient 시장 데이터 제공자 클라이언트
type MarketClient struct {
	baseURL     string
	corpListURL string
	timeout     time.Duration
	retry       int
	client      *http.Client
}

// MarketResponse 시장 데이터 API 응답 구조
type MarketResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// MarketData 필드명/행 배열 형식의 데이터 본문
type MarketData struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// OHLCVRow 시장별 일봉 원시 행
type OHLCVRow struct {
	Ticker        string
	Open          float64
	High          float64
	Low           float64
	Close         float64
	ChangeRate    float64
	HasChangeRate bool
	Volume        int64
	Turnover      int64
	Market        string
}

// CompanyInfo 상장법인 정적 메타데이터(업종, 주요제품)
type CompanyInfo struct {
	Industry string
	Products string
}

// NewMarketClient 시장 데이터 클라이언트 생성
func NewMarketClient(cfg *config.KRXConfig) *MarketClient {
	return &MarketClient{
		baseURL:     cfg.BaseURL,
		corpListURL: cfg.CorpListURL,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		retry:       cfg.Retry,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// request API 호출 (재시도 포함)
func (c *MarketClient) request(apiName string, params url.Values) (*MarketData, error) {
	var resp *MarketResponse
	var lastErr error

	for i := 0; i <= c.retry; i++ {
		resp, lastErr = c.doRequest(apiName, params)
		if lastErr == nil && resp.Code == 0 {
			break
		}
		if i < c.retry {
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("API 오류 응답: %s", resp.Msg)
	}

	var data MarketData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("응답 데이터 파싱 실패: %w", err)
	}

	return &data, nil
}

// doRequest HTTP 요청 실행
func (c *MarketClient) doRequest(apiName string, params url.Values) (*MarketResponse, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, apiName, params.Encode())

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("요청 전송 실패: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 상태 코드 %d: %s", httpResp.StatusCode, string(body))
	}

	var resp MarketResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("응답 파싱 실패: %w", err)
	}

	return &resp, nil
}

// GetOHLCV 특정 날짜/시장의 일봉 데이터 조회.
// 등락률 컬럼이 없는 응답은 해당 시장 자체를 건너뛰도록 빈 결과를 돌려준다.
func (c *MarketClient) GetOHLCV(date, market string) ([]OHLCVRow, error) {
	params := url.Values{}
	params.Set("date", date)
	params.Set("market", market)

	data, err := c.request("ohlcv", params)
	if err != nil {
		return nil, err
	}

	fieldMap := make(map[string]int)
	for i, field := range data.Fields {
		fieldMap[field] = i
	}
	if _, ok := fieldMap["change_rate"]; !ok {
		return nil, nil
	}

	result := make([]OHLCVRow, 0, len(data.Items))
	for _, item := range data.Items {
		rate, hasRate := getFloatOK(item, fieldMap["change_rate"])
		row := OHLCVRow{
			Ticker:        padTicker(getString(item, fieldMap["ticker"])),
			Open:          getFloat(item, fieldMap["open"]),
			High:          getFloat(item, fieldMap["high"]),
			Low:           getFloat(item, fieldMap["low"]),
			Close:         getFloat(item, fieldMap["close"]),
			ChangeRate:    rate,
			HasChangeRate: hasRate,
			Volume:        getInt(item, fieldMap["volume"]),
			Turnover:      getInt(item, fieldMap["turnover"]),
			Market:        market,
		}
		result = append(result, row)
	}

	return result, nil
}

// GetTickerNames 시장별 티커→종목명 매핑 조회
func (c *MarketClient) GetTickerNames(market string) (map[string]string, error) {
	params := url.Values{}
	params.Set("market", market)

	data, err := c.request("ticker_name", params)
	if err != nil {
		return nil, err
	}

	fieldMap := make(map[string]int)
	for i, field := range data.Fields {
		fieldMap[field] = i
	}

	names := make(map[string]string, len(data.Items))
	for _, item := range data.Items {
		ticker := padTicker(getString(item, fieldMap["ticker"]))
		name := getString(item, fieldMap["name"])
		if ticker != "" && name != "" {
			names[ticker] = name
		}
	}

	return names, nil
}

// LoadCompanyInfo 상장법인목록 다운로드 후 티커별 메타데이터 맵 생성.
// 프로세스 기동 시 1회 호출하여 읽기 전용으로 공유한다.
func (c *MarketClient) LoadCompanyInfo() (map[string]CompanyInfo, error) {
	req, err := http.NewRequest("GET", c.corpListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("상장법인목록 다운로드 실패: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("상장법인목록 다운로드 실패: HTTP %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	// KRX 다운로드 파일은 EUC-KR인 경우가 있다
	if !utf8.Valid(body) {
		decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
		if err != nil {
			return nil, fmt.Errorf("EUC-KR 디코딩 실패: %w", err)
		}
		body = decoded
	}

	return parseCompanyInfoCSV(body)
}

// parseCompanyInfoCSV 헤더명 기준으로 종목코드/업종/주요제품 컬럼을 찾는다
func parseCompanyInfoCSV(body []byte) (map[string]CompanyInfo, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV 파싱 실패: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("상장법인목록이 비어 있습니다")
	}

	header := records[0]
	tickerIdx, industryIdx, productsIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "종목코드":
			tickerIdx = i
		case "업종":
			industryIdx = i
		case "주요제품":
			productsIdx = i
		}
	}
	if tickerIdx < 0 {
		return nil, fmt.Errorf("필수 컬럼 '종목코드'를 찾을 수 없습니다")
	}

	info := make(map[string]CompanyInfo, len(records)-1)
	for _, record := range records[1:] {
		if tickerIdx >= len(record) {
			continue
		}
		ticker := padTicker(strings.TrimSpace(record[tickerIdx]))
		if ticker == "" {
			continue
		}
		entry := CompanyInfo{}
		if industryIdx >= 0 && industryIdx < len(record) {
			entry.Industry = strings.TrimSpace(record[industryIdx])
		}
		if productsIdx >= 0 && productsIdx < len(record) {
			entry.Products = strings.TrimSpace(record[productsIdx])
		}
		info[ticker] = entry
	}

	return info, nil
}

// padTicker 티커를 6자리 0 채움 문자열로 정규화
func padTicker(ticker string) string {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return ""
	}
	for len(ticker) < 6 {
		ticker = "0" + ticker
	}
	return ticker
}

// 보조 함수
func getString(item []interface{}, index int) string {
	if index < 0 || index >= len(item) || item[index] == nil {
		return ""
	}
	if str, ok := item[index].(string); ok {
		return strings.TrimSpace(str)
	}
	return ""
}

func getFloat(item []interface{}, index int) float64 {
	v, _ := getFloatOK(item, index)
	return v
}

// getFloatOK 숫자 변환 실패/결측은 ok=false로 구분한다
func getFloatOK(item []interface{}, index int) (float64, bool) {
	if index < 0 || index >= len(item) || item[index] == nil {
		return 0, false
	}
	switch v := item[index].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func getInt(item []interface{}, index int) int64 {
	v, ok := getFloatOK(item, index)
	if !ok {
		return 0
	}
	return int64(v)
}
