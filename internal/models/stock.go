package models

// StockAnalysis 급등주+특징주 분석 결과 한 행
// (날짜, 티커)가 기본키이며 한 날짜에 한 배치만 존재한다.
type StockAnalysis struct {
	Date       string  `gorm:"column:date;type:varchar(8);primaryKey" json:"date"`     // 분석 날짜 YYYYMMDD
	Ticker     string  `gorm:"column:ticker;type:varchar(6);primaryKey" json:"ticker"` // 종목코드 6자리
	Name       string  `gorm:"column:name;type:varchar(100);not null" json:"name"`     // 종목명
	Industry   string  `gorm:"column:industry;type:varchar(100)" json:"industry"`      // 업종
	Products   string  `gorm:"column:products;type:varchar(200)" json:"products"`      // 주요제품
	Open       float64 `gorm:"column:open;type:decimal(14,2)" json:"open"`             // 시가
	High       float64 `gorm:"column:high;type:decimal(14,2)" json:"high"`             // 고가
	Low        float64 `gorm:"column:low;type:decimal(14,2)" json:"low"`               // 저가
	Close      float64 `gorm:"column:close;type:decimal(14,2)" json:"close"`           // 종가
	ChangeRate float64 `gorm:"column:change_rate;type:decimal(10,4)" json:"change_rate"` // 등락률(%)
	Volume     int64   `gorm:"column:volume" json:"volume"`                            // 거래량
	Turnover   int64   `gorm:"column:turnover" json:"turnover"`                        // 거래대금
	Market     string  `gorm:"column:market;type:varchar(10)" json:"market"`           // 시장 구분
	Remark     string  `gorm:"column:remark;type:varchar(30)" json:"remark"`           // 비고: topN / topN+특징주 / 특징주

	ArticleTitle1   string `gorm:"column:article_title1;type:text" json:"article_title1"`
	ArticleSummary1 string `gorm:"column:article_summary1;type:text" json:"article_summary1"`
	ArticleLink1    string `gorm:"column:article_link1;type:text" json:"article_link1"`
	ArticleTitle2   string `gorm:"column:article_title2;type:text" json:"article_title2"`
	ArticleSummary2 string `gorm:"column:article_summary2;type:text" json:"article_summary2"`
	ArticleLink2    string `gorm:"column:article_link2;type:text" json:"article_link2"`
	ArticleTitle3   string `gorm:"column:article_title3;type:text" json:"article_title3"`
	ArticleSummary3 string `gorm:"column:article_summary3;type:text" json:"article_summary3"`
	ArticleLink3    string `gorm:"column:article_link3;type:text" json:"article_link3"`
	ArticleTitle4   string `gorm:"column:article_title4;type:text" json:"article_title4"`
	ArticleSummary4 string `gorm:"column:article_summary4;type:text" json:"article_summary4"`
	ArticleLink4    string `gorm:"column:article_link4;type:text" json:"article_link4"`
	ArticleTitle5   string `gorm:"column:article_title5;type:text" json:"article_title5"`
	ArticleSummary5 string `gorm:"column:article_summary5;type:text" json:"article_summary5"`
	ArticleLink5    string `gorm:"column:article_link5;type:text" json:"article_link5"`

	// 이후 버전에서 추가된 컬럼. 값이 없어도 기존 행과 호환된다.
	Theme     string `gorm:"column:theme;type:text" json:"theme"`
	AISummary string `gorm:"column:ai_summary;type:text" json:"ai_summary"`
}

// TableName 테이블명 지정
func (StockAnalysis) TableName() string {
	return "stock_analysis"
}

// SetArticle n번째(1~5) 기사 슬롯을 채운다. 범위 밖 인덱스는 무시.
func (s *StockAnalysis) SetArticle(n int, title, summary, link string) {
	switch n {
	case 1:
		s.ArticleTitle1, s.ArticleSummary1, s.ArticleLink1 = title, summary, link
	case 2:
		s.ArticleTitle2, s.ArticleSummary2, s.ArticleLink2 = title, summary, link
	case 3:
		s.ArticleTitle3, s.ArticleSummary3, s.ArticleLink3 = title, summary, link
	case 4:
		s.ArticleTitle4, s.ArticleSummary4, s.ArticleLink4 = title, summary, link
	case 5:
		s.ArticleTitle5, s.ArticleSummary5, s.ArticleLink5 = title, summary, link
	}
}

// Article n번째(1~5) 기사 슬롯을 반환한다.
func (s *StockAnalysis) Article(n int) (title, summary, link string) {
	switch n {
	case 1:
		return s.ArticleTitle1, s.ArticleSummary1, s.ArticleLink1
	case 2:
		return s.ArticleTitle2, s.ArticleSummary2, s.ArticleLink2
	case 3:
		return s.ArticleTitle3, s.ArticleSummary3, s.ArticleLink3
	case 4:
		return s.ArticleTitle4, s.ArticleSummary4, s.ArticleLink4
	case 5:
		return s.ArticleTitle5, s.ArticleSummary5, s.ArticleLink5
	}
	return "", "", ""
}
