package service

import (
	"bytes"
	"strings"
	"surge_detector/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteTSV 헤더 1행 + 데이터, 탭 구분
func TestWriteTSV(t *testing.T) {
	row := models.StockAnalysis{
		Date:       "20240105",
		Ticker:     "005930",
		Name:       "삼성전자",
		Industry:   "전자제품 제조업",
		Open:       70000,
		Close:      71000,
		ChangeRate: 2.45,
		Volume:     12345678,
		Market:     "KOSPI",
		Remark:     "top40+특징주",
	}
	row.SetArticle(1, "[특징주] 삼성전자 강세", "반도체 업황 회복", "https://news.example.com/a")

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, []models.StockAnalysis{row}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	header := strings.Split(lines[0], "\t")
	assert.Equal(t, 29, len(header))
	assert.Equal(t, "날짜", header[0])
	assert.Equal(t, "비고", header[13])
	assert.Equal(t, "기사링크5", header[28])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 29)
	assert.Equal(t, "20240105", fields[0])
	assert.Equal(t, "005930", fields[1])
	assert.Equal(t, "2.45", fields[9])
	assert.Equal(t, "top40+특징주", fields[13])
	assert.Equal(t, "[특징주] 삼성전자 강세", fields[14])
	assert.Equal(t, "https://news.example.com/a", fields[16])
}

// TestWriteTSV_Empty 데이터가 없어도 헤더는 기록된다
func TestWriteTSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, nil))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 1)
}
