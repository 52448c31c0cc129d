package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"` // 僅在開發模式顯示
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

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrNotFound) 對包裝後的錯誤也成立
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap 以相同代碼包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// WithMessage 以相同代碼替換訊息
func (e *CustomError) WithMessage(msg string) *CustomError {
	return &CustomError{Code: e.Code, Message: msg, Status: e.Status, Err: e.Err}
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

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"
	ErrCodeEntityTooLarge   = "ENTITY_TOO_LARGE"
	ErrCodeNoIngredients    = "NO_INGREDIENTS"
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeAIUnavailable    = "AI_UNAVAILABLE"
	ErrCodeAIMalformed      = "AI_MALFORMED_RESPONSE"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeNotImplemented   = "NOT_IMPLEMENTED"
	ErrCodeServiceUnavail   = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidImage     = "INVALID_IMAGE_FORMAT"
	ErrCodeInvalidImageSize = "INVALID_IMAGE_SIZE"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusGatewayTimeout, nil)
	ErrNoIngredients   = NewError(ErrCodeNoIngredients, "no ingredients provided", http.StatusBadRequest, nil)
	ErrPostNotFound    = NewError(ErrCodePostNotFound, "post not found", http.StatusNotFound, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrNotImplemented     = NewError(ErrCodeNotImplemented, "功能未實現", http.StatusNotImplemented, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavail, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrStorage            = NewError(ErrCodeStorage, "storage error", http.StatusInternalServerError, nil)

	// 業務錯誤
	ErrAIUnavailable       = NewError(ErrCodeAIUnavailable, "AI provider unavailable", http.StatusServiceUnavailable, nil)
	ErrAIMalformedResponse = NewError(ErrCodeAIMalformed, "AI provider returned a malformed response", http.StatusBadGateway, nil)
	ErrInvalidImageFormat  = NewError(ErrCodeInvalidImage, "無效的圖片格式", http.StatusBadRequest, nil)
	ErrInvalidImageSize    = NewError(ErrCodeInvalidImageSize, "圖片大小超出限制", http.StatusBadRequest, nil)
	ErrCacheMiss           = NewError("CACHE_MISS", "快取未命中", http.StatusNotFound, nil)
	ErrCacheFull           = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
)

// StatusFor 將任意錯誤轉為 HTTP 狀態碼與錯誤代碼
func StatusFor(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	if IsValidationError(err) {
		return http.StatusBadRequest, ErrCodeInvalidRequest
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		status := ce.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ce.Code
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// NewErrorResponse 建立錯誤響應
func NewErrorResponse(err error, debug bool) (int, ErrorResponse) {
	status, code := StatusFor(err)
	resp := ErrorResponse{Success: false, Code: code, Error: err.Error()}
	var ce *CustomError
	if errors.As(err, &ce) {
		resp.Error = ce.Message
		if debug && ce.Err != nil {
			resp.Details = ce.Err.Error()
		}
	}
	return status, resp
}
