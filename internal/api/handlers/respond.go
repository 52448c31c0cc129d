// Package handlers HTTP 處理器共用的回應工具
package handlers

import (
	"errors"
	"io"
	"net/http"

	"freshloop/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將錯誤轉為 {success:false, code, error}
func RespondError(c *gin.Context, err error, debug bool) {
	status, body := common.NewErrorResponse(err, debug)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("code", body.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求被拒絕", fields...)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// BindJSON 解析請求體；空的請求體視為 {}
func BindJSON(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil {
		return nil
	}
	if err := common.DecodeJSON(c.Request.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return common.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
