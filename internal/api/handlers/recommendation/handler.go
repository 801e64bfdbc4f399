package recommendation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"food-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recommender 推薦服務
type Recommender interface {
	GetRecommendations(ctx context.Context, req common.RecommendationRequest) (*common.FoodRecommendationResponse, error)
}

// Request 推薦請求
type Request struct {
	SearchType string `json:"search_type" binding:"required"` // condition | goal | country
	Value      string `json:"value"`                          // 疾病、目標或國家名稱
	Country    string `json:"country,omitempty"`              // 限定食物的地區（可省略）
}

// Handler 推薦處理器
type Handler struct {
	service Recommender
	debug   bool
}

// NewHandler 創建推薦處理器；debug 時錯誤響應附帶原始錯誤
func NewHandler(service Recommender, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// HandleRecommendations 取得飲食推薦
func (h *Handler) HandleRecommendations(c *gin.Context) {
	var body Request
	if err := c.ShouldBindJSON(&body); err != nil {
		common.LogWarn("Invalid recommendation request",
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
		h.respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	searchType, err := common.ParseSearchType(body.SearchType)
	if err != nil {
		h.respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	req := common.RecommendationRequest{
		SearchType: searchType,
		Value:      strings.TrimSpace(body.Value),
		Country:    strings.TrimSpace(body.Country),
	}

	common.LogInfo("收到推薦請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("search_type", string(req.SearchType)),
		zap.String("value", req.Value),
		zap.String("country", req.Country),
	)

	resp, err := h.service.GetRecommendations(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError 依錯誤類型回應；5xx 不回傳內部細節，除非在除錯模式
func (h *Handler) respondError(c *gin.Context, err error) {
	status := common.StatusOf(err)
	out := common.ErrorResponse{
		Code:    common.CodeOf(err),
		Message: http.StatusText(status),
	}

	var ce *common.CustomError
	if errors.As(err, &ce) {
		out.Message = ce.Message
	}
	if status < http.StatusInternalServerError {
		out.Message = err.Error()
	} else if h.debug {
		out.Details = err.Error()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, out)
}
