package handler

import (
	"errors"
	"net/http"

	"github.com/blues/ess/internal/escrow"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// EscrowErrorResponse 按托管错误分类映射HTTP状态码
func EscrowErrorResponse(c *gin.Context, err error) {
	var verr *escrow.ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, escrow.ErrEscrowNotFound), errors.Is(err, escrow.ErrMilestoneIndexInvalid):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, escrow.ErrUnauthorized):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, escrow.ErrTransferFailed):
		ErrorResponse(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, escrow.ErrAlreadyFunded),
		errors.Is(err, escrow.ErrNotFunded),
		errors.Is(err, escrow.ErrAlreadyResolved),
		errors.Is(err, escrow.ErrMilestoneCompleted),
		errors.Is(err, escrow.ErrMilestonesIncomplete),
		errors.Is(err, escrow.ErrInvalidState):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
