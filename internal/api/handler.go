package api

import (
	"bytes"
	"errors"
	"net/http"
	"surge_detector/internal/models"
	"surge_detector/internal/service"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler API 처리기
type Handler struct {
	analyzer *service.Analyzer
	store    *service.Store
	flow     *service.SaveFlow
	logger   *zap.Logger

	mu         sync.Mutex
	lastResult *service.AnalysisResult
}

// NewHandler 처리기 생성
func NewHandler(analyzer *service.Analyzer, store *service.Store, flow *service.SaveFlow, logger *zap.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		store:    store,
		flow:     flow,
		logger:   logger,
	}
}

// Response 공통 응답 구조
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AnalyzeRequest 분석 요청
type AnalyzeRequest struct {
	Date      string `json:"date" binding:"required"`
	TopN      int    `json:"top_n"`
	NewsCount int    `json:"news_count"`
}

// SaveRequest 저장 요청. overwrite=true면 충돌 시 즉시 덮어쓴다.
type SaveRequest struct {
	Overwrite bool `json:"overwrite"`
}

// RegisterRoutes 라우트 등록
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// 상태 확인
		api.GET("/health", h.HealthCheck)

		// 분석/저장
		api.POST("/analyze", h.Analyze)
		api.POST("/save", h.Save)
		api.POST("/save/cancel", h.CancelSave)
		api.GET("/save/state", h.SaveStateInfo)

		// 데이터 조회
		data := api.Group("/data")
		{
			data.GET("/dates", h.GetDates)
			data.GET("/analysis", h.GetAnalysis)
		}

		// 내보내기
		api.GET("/export/tsv", h.ExportTSV)
	}
}

// HealthCheck 상태 확인
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "OK",
		Data: gin.H{
			"status": "healthy",
		},
	})
}

// Analyze 하루치 급등주 분석 실행. 결과는 저장 확인 전까지 메모리에 보관한다.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "요청 파라미터 오류: " + err.Error(),
		})
		return
	}

	h.logger.Info("분석 요청 수신",
		zap.String("date", req.Date),
		zap.Int("top_n", req.TopN))

	result, err := h.analyzer.Run(c.Request.Context(), req.Date, req.TopN, req.NewsCount)
	if err != nil {
		if errors.Is(err, service.ErrNoMarketData) {
			c.JSON(http.StatusNotFound, Response{
				Code:    404,
				Message: "해당 날짜의 시장 데이터가 없습니다(휴장일 여부를 확인해 주세요)",
			})
			return
		}
		h.logger.Error("분석 실패", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	h.mu.Lock()
	h.lastResult = result
	h.mu.Unlock()

	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "분석 완료",
		Data:    result,
	})
}

// Save 마지막 분석 결과 저장. 같은 날짜의 데이터가 이미 있으면 409로 알리고
// 덮어쓰기 확인을 기다린다(overwrite=true로 재요청하면 확정).
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "요청 파라미터 오류: " + err.Error(),
		})
		return
	}

	// 이미 충돌 확인 대기 중이면 바로 확정 단계로 진행
	if h.flow.State() == service.StateConflict {
		if !req.Overwrite {
			c.JSON(http.StatusConflict, Response{
				Code:    409,
				Message: "already_exists",
				Data:    gin.H{"state": h.flow.State()},
			})
			return
		}
		h.confirmOverwrite(c)
		return
	}

	h.mu.Lock()
	result := h.lastResult
	h.mu.Unlock()
	if result == nil || len(result.Results) == 0 {
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "저장할 분석 결과가 없습니다. 먼저 분석을 실행해 주세요",
		})
		return
	}

	state, err := h.flow.Begin(result.Results)
	if err != nil {
		h.logger.Error("저장 실패", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	if state == service.StateConflict {
		if req.Overwrite {
			h.confirmOverwrite(c)
			return
		}
		c.JSON(http.StatusConflict, Response{
			Code:    409,
			Message: "already_exists",
			Data: gin.H{
				"state": state,
				"date":  result.Date,
			},
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "저장 완료",
		Data: gin.H{
			"state":       state,
			"saved_count": h.flow.SavedCount(),
		},
	})
}

func (h *Handler) confirmOverwrite(c *gin.Context) {
	state, err := h.flow.ConfirmOverwrite()
	if err != nil {
		h.logger.Error("덮어쓰기 실패", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "덮어쓰기 저장 완료",
		Data: gin.H{
			"state":       state,
			"saved_count": h.flow.SavedCount(),
		},
	})
}

// CancelSave 충돌 확인 대기 중인 저장을 취소한다.
func (h *Handler) CancelSave(c *gin.Context) {
	h.flow.Cancel()
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "저장 취소",
		Data:    gin.H{"state": h.flow.State()},
	})
}

// SaveStateInfo 저장 흐름의 현재 상태 조회
func (h *Handler) SaveStateInfo(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: gin.H{
			"state":       h.flow.State(),
			"saved_count": h.flow.SavedCount(),
		},
	})
}

// GetDates 저장된 날짜 목록 조회
func (h *Handler) GetDates(c *gin.Context) {
	dates, err := h.store.SavedDates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: gin.H{
			"dates": dates,
			"total": len(dates),
		},
	})
}

// GetAnalysis 저장된 분석 결과 조회. date 단건 또는 start_date+end_date 기간.
func (h *Handler) GetAnalysis(c *gin.Context) {
	date := c.Query("date")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	var rows []models.StockAnalysis
	var err error
	switch {
	case date != "":
		rows, err = h.store.GetByDate(date)
	case startDate != "" && endDate != "":
		rows, err = h.store.GetByDateRange(startDate, endDate)
	default:
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "date 또는 start_date+end_date를 지정해 주세요",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: gin.H{
			"list":  rows,
			"total": len(rows),
		},
	})
}

// ExportTSV 특정 날짜의 저장 결과를 탭 구분 텍스트로 내려준다.
func (h *Handler) ExportTSV(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "date를 지정해 주세요",
		})
		return
	}

	rows, err := h.store.GetByDate(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Message: "해당 날짜의 저장 데이터가 없습니다",
		})
		return
	}

	var buf bytes.Buffer
	if err := service.WriteTSV(&buf, rows); err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Code:    500,
			Message: err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stock_analysis_`+date+`.txt"`)
	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", buf.Bytes())
}
