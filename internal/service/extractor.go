package service

import "strings"

// featuredKeywords 특징주 판별 키워드. 정제된 제목에 대한 부분 문자열 매칭.
var featuredKeywords = []string{"[특징주]", "특징주", "급등주", "상한가", "강세", "상승"}

// ExtractResult 특징주 추출 결과와 집계
type ExtractResult struct {
	// 종목명 → 해당 종목을 언급한 첫 번째 특징주 기사(항상 1건)
	Featured map[string][]NewsArticle
	// 대상 날짜의 기사 수
	ArticlesOnDate int
	// 그중 키워드에 걸린 기사 수
	KeywordMatches int
}

// ExtractFeaturedStocks 뉴스 목록에서 특징주를 추출한다.
// 대상 날짜의 기사 중 키워드가 제목에 포함된 것만 보고, 제목 또는 요약에
// 종목명이 부분 문자열로 등장하면 그 종목에 기사를 등록한다.
// 종목당 최초 1건만 유지하며(교체 없음), 빈 결과도 정상이다.
func ExtractFeaturedStocks(articles []NewsArticle, targetDate string, stockNames []string) ExtractResult {
	result := ExtractResult{
		Featured: make(map[string][]NewsArticle),
	}
	if len(stockNames) == 0 {
		return result
	}

	for _, article := range articles {
		if article.PubDate != targetDate {
			continue
		}
		result.ArticlesOnDate++

		matched := false
		for _, keyword := range featuredKeywords {
			if strings.Contains(article.Title, keyword) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		result.KeywordMatches++

		for _, name := range stockNames {
			if strings.Contains(article.Title, name) || strings.Contains(article.Summary, name) {
				if _, exists := result.Featured[name]; !exists {
					result.Featured[name] = []NewsArticle{article}
				}
			}
		}
	}

	return result
}
