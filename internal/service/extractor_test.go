package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractFeaturedStocks 날짜 필터 → 키워드 필터 → 종목명 매칭 순서 검증
func TestExtractFeaturedStocks(t *testing.T) {
	articles := []NewsArticle{
		{Title: "[특징주] 삼성전자 신고가 경신", Summary: "반도체 업황 회복", PubDate: "20240105", Link: "https://a"},
		{Title: "에코프로비엠 실적 발표", Summary: "특징주와 무관한 일반 기사", PubDate: "20240105", Link: "https://b"},
		{Title: "[특징주] SK하이닉스 강세", Summary: "HBM 수요 증가", PubDate: "20240104", Link: "https://c"}, // 전일 기사
	}
	names := []string{"삼성전자", "SK하이닉스", "에코프로비엠"}

	result := ExtractFeaturedStocks(articles, "20240105", names)

	assert.Equal(t, 2, result.ArticlesOnDate)
	assert.Equal(t, 1, result.KeywordMatches)
	require.Len(t, result.Featured, 1)
	require.Len(t, result.Featured["삼성전자"], 1)
	assert.Equal(t, "https://a", result.Featured["삼성전자"][0].Link)
}

// TestExtractFeaturedStocks_FirstArticleWins 종목당 최초 기사만 유지한다
func TestExtractFeaturedStocks_FirstArticleWins(t *testing.T) {
	articles := []NewsArticle{
		{Title: "[특징주] 삼성전자 상한가", PubDate: "20240105", Link: "https://first"},
		{Title: "[특징주] 삼성전자 급등 지속", PubDate: "20240105", Link: "https://second"},
	}

	result := ExtractFeaturedStocks(articles, "20240105", []string{"삼성전자"})

	require.Len(t, result.Featured["삼성전자"], 1)
	assert.Equal(t, "https://first", result.Featured["삼성전자"][0].Link)
}

// TestExtractFeaturedStocks_SummaryMatch 요약에만 종목명이 있어도 매칭된다
func TestExtractFeaturedStocks_SummaryMatch(t *testing.T) {
	articles := []NewsArticle{
		{Title: "[특징주] 2차전지 관련주 급등", Summary: "에코프로비엠이 강세를 보였다", PubDate: "20240105", Link: "https://a"},
	}

	result := ExtractFeaturedStocks(articles, "20240105", []string{"에코프로비엠"})

	require.Len(t, result.Featured, 1)
	assert.Contains(t, result.Featured, "에코프로비엠")
}

// TestExtractFeaturedStocks_KeywordVariants 키워드 여섯 종 모두 인정된다
func TestExtractFeaturedStocks_KeywordVariants(t *testing.T) {
	for _, keyword := range []string{"[특징주]", "특징주", "급등주", "상한가", "강세", "상승"} {
		articles := []NewsArticle{
			{Title: keyword + " 삼성전자 관련 기사", PubDate: "20240105", Link: "https://a"},
		}
		result := ExtractFeaturedStocks(articles, "20240105", []string{"삼성전자"})
		assert.Len(t, result.Featured, 1, "키워드: %s", keyword)
	}
}

// TestExtractFeaturedStocks_NoKeyword 키워드 없는 제목은 종목명이 있어도 제외
func TestExtractFeaturedStocks_NoKeyword(t *testing.T) {
	articles := []NewsArticle{
		{Title: "삼성전자 주주총회 개최", PubDate: "20240105", Link: "https://a"},
	}

	result := ExtractFeaturedStocks(articles, "20240105", []string{"삼성전자"})

	assert.Equal(t, 1, result.ArticlesOnDate)
	assert.Equal(t, 0, result.KeywordMatches)
	assert.Empty(t, result.Featured)
}

// TestExtractFeaturedStocks_EmptyInputs 빈 입력은 빈 결과
func TestExtractFeaturedStocks_EmptyInputs(t *testing.T) {
	result := ExtractFeaturedStocks(nil, "20240105", []string{"삼성전자"})
	assert.Empty(t, result.Featured)

	articles := []NewsArticle{
		{Title: "[특징주] 삼성전자 상승", PubDate: "20240105", Link: "https://a"},
	}
	result = ExtractFeaturedStocks(articles, "20240105", nil)
	assert.Empty(t, result.Featured)
	assert.Equal(t, 0, result.ArticlesOnDate)
}
