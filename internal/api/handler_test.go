package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"surge_detector/internal/models"
	"surge_detector/internal/service"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) (*Handler, *gin.Engine, *service.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StockAnalysis{}))

	store := service.NewStore(db, 100, zap.NewNop())
	flow := service.NewSaveFlow(store)
	h := NewHandler(nil, store, flow, zap.NewNop())

	r := gin.New()
	h.RegisterRoutes(r)
	return h, r, store
}

func testResults(date string, n int) []models.StockAnalysis {
	results := make([]models.StockAnalysis, n)
	for i := 0; i < n; i++ {
		results[i] = models.StockAnalysis{
			Date:       date,
			Ticker:     fmt.Sprintf("%06d", i+1),
			Name:       fmt.Sprintf("종목%d", i+1),
			ChangeRate: float64(n - i),
			Remark:     "top40",
		}
	}
	return results
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestHealthCheck 상태 확인 엔드포인트
func TestHealthCheck(t *testing.T) {
	_, r, _ := newTestHandler(t)

	w := doJSON(r, "GET", "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

// TestSave_WithoutAnalysis 분석 결과가 없으면 저장 요청을 거부한다
func TestSave_WithoutAnalysis(t *testing.T) {
	_, r, _ := newTestHandler(t)

	w := doJSON(r, "POST", "/api/v1/save", `{"overwrite":false}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestSave_Success 최초 저장 성공
func TestSave_Success(t *testing.T) {
	h, r, store := newTestHandler(t)
	h.lastResult = &service.AnalysisResult{
		Date:    "20240105",
		Results: testResults("20240105", 3),
	}

	w := doJSON(r, "POST", "/api/v1/save", `{"overwrite":false}`)

	assert.Equal(t, http.StatusOK, w.Code)

	rows, err := store.GetByDate("20240105")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

// TestSave_ConflictThenConfirm 충돌 409 → overwrite=true 재요청으로 확정
func TestSave_ConflictThenConfirm(t *testing.T) {
	h, r, store := newTestHandler(t)
	_, err := store.Save(testResults("20240105", 5), false)
	require.NoError(t, err)

	h.lastResult = &service.AnalysisResult{
		Date:    "20240105",
		Results: testResults("20240105", 3),
	}

	w := doJSON(r, "POST", "/api/v1/save", `{"overwrite":false}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_exists")

	// 덮어쓰기 확정
	w = doJSON(r, "POST", "/api/v1/save", `{"overwrite":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	rows, err := store.GetByDate("20240105")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

// TestSave_ConflictThenCancel 충돌 후 취소하면 기존 데이터 유지
func TestSave_ConflictThenCancel(t *testing.T) {
	h, r, store := newTestHandler(t)
	_, err := store.Save(testResults("20240105", 5), false)
	require.NoError(t, err)

	h.lastResult = &service.AnalysisResult{
		Date:    "20240105",
		Results: testResults("20240105", 3),
	}

	w := doJSON(r, "POST", "/api/v1/save", `{"overwrite":false}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, "POST", "/api/v1/save/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/api/v1/save/state", "")
	assert.Contains(t, w.Body.String(), string(service.StateIdle))

	rows, err := store.GetByDate("20240105")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

// TestGetDates 저장 날짜 목록 조회
func TestGetDates(t *testing.T) {
	_, r, store := newTestHandler(t)
	_, err := store.Save(testResults("20240104", 1), false)
	require.NoError(t, err)
	_, err = store.Save(testResults("20240105", 1), false)
	require.NoError(t, err)

	w := doJSON(r, "GET", "/api/v1/data/dates", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
}

// TestGetAnalysis_RequiresParams 날짜 파라미터 없는 조회는 거부된다
func TestGetAnalysis_RequiresParams(t *testing.T) {
	_, r, _ := newTestHandler(t)

	w := doJSON(r, "GET", "/api/v1/data/analysis", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestGetAnalysis_ByDate 단건 날짜 조회
func TestGetAnalysis_ByDate(t *testing.T) {
	_, r, store := newTestHandler(t)
	_, err := store.Save(testResults("20240105", 2), false)
	require.NoError(t, err)

	w := doJSON(r, "GET", "/api/v1/data/analysis?date=20240105", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
}

// TestExportTSV 저장된 날짜의 TSV 다운로드
func TestExportTSV(t *testing.T) {
	_, r, store := newTestHandler(t)
	_, err := store.Save(testResults("20240105", 2), false)
	require.NoError(t, err)

	w := doJSON(r, "GET", "/api/v1/export/tsv?date=20240105", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "20240105")

	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 3) // 헤더 + 2행
	assert.Contains(t, lines[0], "날짜")
}

// TestExportTSV_NotFound 저장 데이터가 없는 날짜는 404
func TestExportTSV_NotFound(t *testing.T) {
	_, r, _ := newTestHandler(t)

	w := doJSON(r, "GET", "/api/v1/export/tsv?date=20240105", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestAnalyze_BadRequest 필수 파라미터 누락
func TestAnalyze_BadRequest(t *testing.T) {
	_, r, _ := newTestHandler(t)

	w := doJSON(r, "POST", "/api/v1/analyze", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
