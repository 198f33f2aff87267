package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"surge_detector/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// snapshotServer 시장별로 일봉과 종목명을 함께 흉내 내는 서버
func snapshotServer(t *testing.T, ohlcv map[string][][]interface{}, names map[string][][]interface{}, failMarkets map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		market := r.URL.Query().Get("market")
		if failMarkets[market] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ohlcv":
			w.Write(marketJSON(t,
				[]string{"ticker", "open", "high", "low", "close", "change_rate", "volume", "turnover"},
				ohlcv[market]))
		case "/ticker_name":
			w.Write(marketJSON(t, []string{"ticker", "name"}, names[market]))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestFetch_CombinesMarkets 세 시장을 고정 순서로 결합하고 메타데이터를 병합한다
func TestFetch_CombinesMarkets(t *testing.T) {
	ohlcv := map[string][][]interface{}{
		MarketKOSPI: {
			{"5930", 70000.0, 71500.0, 69800.0, 71000.0, 2.45, 1000.0, 2000.0},
		},
		MarketKOSDAQ: {
			{"247540", 400000.0, 420000.0, 395000.0, 415000.0, 5.10, 3000.0, 4000.0},
		},
		MarketKONEX: {},
	}
	names := map[string][][]interface{}{
		MarketKOSPI:  {{"5930", "삼성전자"}},
		MarketKOSDAQ: {{"247540", "에코프로비엠"}},
		MarketKONEX:  {},
	}

	server := snapshotServer(t, ohlcv, names, nil)
	defer server.Close()

	client := NewMarketClient(&config.KRXConfig{BaseURL: server.URL, Timeout: 5, Retry: 0})
	company := map[string]CompanyInfo{
		"005930": {Industry: "전자제품 제조업", Products: "스마트폰"},
	}
	fetcher := NewSnapshotFetcher(client, company, zap.NewNop())

	rows, err := fetcher.Fetch(context.Background(), "20240105")

	require.NoError(t, err)
	require.Len(t, rows, 2)

	// KOSPI 먼저, 그다음 KOSDAQ
	assert.Equal(t, "005930", rows[0].Ticker)
	assert.Equal(t, "삼성전자", rows[0].Name)
	assert.Equal(t, "전자제품 제조업", rows[0].Industry)
	assert.Equal(t, "스마트폰", rows[0].Products)
	assert.Equal(t, MarketKOSPI, rows[0].Market)

	assert.Equal(t, "247540", rows[1].Ticker)
	assert.Equal(t, "에코프로비엠", rows[1].Name)
	// 메타데이터가 없는 종목은 빈 값으로 남는다
	assert.Equal(t, "", rows[1].Industry)
	assert.Equal(t, MarketKOSDAQ, rows[1].Market)
}

// TestFetch_DropsInvalidRows 등락률 결측 또는 종목명 미해석 행은 제외된다
func TestFetch_DropsInvalidRows(t *testing.T) {
	ohlcv := map[string][][]interface{}{
		MarketKOSPI: {
			{"5930", 70000.0, 71500.0, 69800.0, 71000.0, 2.45, 1000.0, 2000.0},
			{"660", 130000.0, 131000.0, 128000.0, 129500.0, nil, 500.0, 600.0}, // 등락률 결측
			{"35420", 200000.0, 205000.0, 198000.0, 203000.0, 1.50, 700.0, 800.0}, // 이름 없음
		},
		MarketKOSDAQ: {},
		MarketKONEX:  {},
	}
	names := map[string][][]interface{}{
		MarketKOSPI:  {{"5930", "삼성전자"}, {"660", "SK하이닉스"}},
		MarketKOSDAQ: {},
		MarketKONEX:  {},
	}

	server := snapshotServer(t, ohlcv, names, nil)
	defer server.Close()

	client := NewMarketClient(&config.KRXConfig{BaseURL: server.URL, Timeout: 5, Retry: 0})
	fetcher := NewSnapshotFetcher(client, map[string]CompanyInfo{}, zap.NewNop())

	rows, err := fetcher.Fetch(context.Background(), "20240105")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "삼성전자", rows[0].Name)
}

// TestFetch_SegmentFailureSkipped 한 시장의 실패는 나머지 결과에 영향을 주지 않는다
func TestFetch_SegmentFailureSkipped(t *testing.T) {
	ohlcv := map[string][][]interface{}{
		MarketKOSPI: {
			{"5930", 70000.0, 71500.0, 69800.0, 71000.0, 2.45, 1000.0, 2000.0},
		},
		MarketKONEX: {},
	}
	names := map[string][][]interface{}{
		MarketKOSPI: {{"5930", "삼성전자"}},
		MarketKONEX: {},
	}

	server := snapshotServer(t, ohlcv, names, map[string]bool{MarketKOSDAQ: true})
	defer server.Close()

	client := NewMarketClient(&config.KRXConfig{BaseURL: server.URL, Timeout: 5, Retry: 0})
	fetcher := NewSnapshotFetcher(client, map[string]CompanyInfo{}, zap.NewNop())

	rows, err := fetcher.Fetch(context.Background(), "20240105")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, MarketKOSPI, rows[0].Market)
}

// TestFetch_AllEmpty 전 시장이 비면 ErrNoMarketData
func TestFetch_AllEmpty(t *testing.T) {
	empty := map[string][][]interface{}{
		MarketKOSPI: {}, MarketKOSDAQ: {}, MarketKONEX: {},
	}
	server := snapshotServer(t, empty, empty, nil)
	defer server.Close()

	client := NewMarketClient(&config.KRXConfig{BaseURL: server.URL, Timeout: 5, Retry: 0})
	fetcher := NewSnapshotFetcher(client, map[string]CompanyInfo{}, zap.NewNop())

	rows, err := fetcher.Fetch(context.Background(), "20240106")

	require.ErrorIs(t, err, ErrNoMarketData)
	assert.Nil(t, rows)
}
