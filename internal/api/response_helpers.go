// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
)

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "资源创建成功"
	}
	c.JSON(http.StatusCreated, response)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, "BAD_REQUEST", message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, "NOT_FOUND", message, details...)
}

// Conflict 409错误响应
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, "CONFLICT", message, details...)
}

// Unavailable 503错误响应
func (rh *ResponseHelper) Unavailable(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusServiceUnavailable, "UNAVAILABLE", message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, details...)
}

// FromError 按应用错误类型映射为对应的HTTP响应
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		rh.InternalError(c, err.Error())
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, appErr.Code, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		rh.Error(c, http.StatusNotFound, appErr.Code, appErr.Message)
	case apperrors.ErrorTypeConflict:
		rh.Error(c, http.StatusConflict, appErr.Code, appErr.Message)
	case apperrors.ErrorTypeUnavailable:
		rh.Error(c, http.StatusServiceUnavailable, appErr.Code, appErr.Message)
	default:
		rh.Error(c, http.StatusInternalServerError, appErr.Code, appErr.Message)
	}
}

// FileResponse 文件下载响应
func (rh *ResponseHelper) FileResponse(c *gin.Context, content string, filename string, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.String(http.StatusOK, content)
}

// ExportResponse 导出响应
func (rh *ResponseHelper) ExportResponse(c *gin.Context, result *models.ExportResult, download bool) {
	if download {
		rh.FileResponse(c, result.Content, filepath.Base(result.FilePath), "text/plain; charset=utf-8")
		return
	}
	rh.Success(c, result, "导出成功")
}
