package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"error"`             // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrInvalidRequest) 在包裝後仍成立
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap 以相同代碼包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return &CustomError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StatusOf 取得錯誤對應的 HTTP 狀態碼
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// CodeOf 取得錯誤代碼
func CodeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	if IsValidationError(err) {
		return ErrCodeInvalidRequest
	}
	return ErrCodeInternalError
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE" // 413

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "gateway timeout", http.StatusGatewayTimeout, nil)
)

// 外部依賴錯誤分類
var (
	// ErrUpstreamUnavailable 外部服務無法連線或回傳非 2xx
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamParse 外部服務回覆無法解析
	ErrUpstreamParse = errors.New("upstream reply not parseable")
	// ErrCacheUnavailable 快取儲存層讀寫失敗
	ErrCacheUnavailable = errors.New("cache unavailable")
)
