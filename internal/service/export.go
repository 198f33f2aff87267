package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"surge_detector/internal/models"
)

// exportColumns TSV 내보내기 헤더. 저장 스키마와 같은 순서.
var exportColumns = []string{
	"날짜", "티커", "종목명", "업종", "주요제품",
	"시가", "고가", "저가", "종가", "등락률", "거래량", "거래대금", "시장", "비고",
	"기사제목1", "기사요약1", "기사링크1",
	"기사제목2", "기사요약2", "기사링크2",
	"기사제목3", "기사요약3", "기사링크3",
	"기사제목4", "기사요약4", "기사링크4",
	"기사제목5", "기사요약5", "기사링크5",
}

// WriteTSV 분석 결과를 탭 구분 텍스트로 기록한다(헤더 1행 + 데이터).
func WriteTSV(w io.Writer, rows []models.StockAnalysis) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("헤더 기록 실패: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			row.Ticker,
			row.Name,
			row.Industry,
			row.Products,
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			formatFloat(row.ChangeRate),
			strconv.FormatInt(row.Volume, 10),
			strconv.FormatInt(row.Turnover, 10),
			row.Market,
			row.Remark,
		}
		for n := 1; n <= 5; n++ {
			title, summary, link := row.Article(n)
			record = append(record, title, summary, link)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("행 기록 실패: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
