package service

import (
	"errors"
	"net/http"

	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/logic"
	"petcare_settlement/pkg/pagination"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Code int

const CodeSuccess Code = http.StatusOK

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"` // gateway error code on 402
	Data    any    `json:"data,omitempty"`
}

func ResponseSuccess(c *gin.Context, d any) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Code:   int(CodeSuccess),
		Data:   d,
	})
}

func ResponseSuccessWithMsg(c *gin.Context, d any, msg string) {
	c.JSON(http.StatusOK, Response{
		Status:  "success",
		Code:    int(CodeSuccess),
		Message: msg,
		Data:    d,
	})
}

// ResponseError aborts the request with the error envelope.
func ResponseError(c *gin.Context, httpCode int, message string) {
	c.AbortWithStatusJSON(httpCode, Response{
		Status:  "error",
		Code:    httpCode,
		Message: message,
	})
}

type apiError struct {
	status  int
	message string
	reason  string
}

// errorStatus maps a logic error onto the HTTP status and the message shown to the client.
func errorStatus(err error) apiError {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		return apiError{status: http.StatusNotFound, message: err.Error()}
	case errors.Is(err, logic.ErrForbidden):
		return apiError{status: http.StatusForbidden, message: "permission denied"}
	case logic.IsCouponIneligible(err):
		return apiError{status: http.StatusUnprocessableEntity, message: "coupon not applicable"}
	case errors.Is(err, logic.ErrInvalidState), errors.Is(err, logic.ErrConflict):
		return apiError{status: http.StatusConflict, message: err.Error()}
	case errors.Is(err, logic.ErrGateway):
		out := apiError{status: http.StatusPaymentRequired, message: "payment gateway rejected the request"}
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			out.reason = gwErr.Code
			if gwErr.Message != "" {
				out.message = gwErr.Message
			}
		}
		return out
	case errors.Is(err, logic.ErrValidation), errors.Is(err, pagination.ErrInvalidToken):
		return apiError{status: http.StatusBadRequest, message: err.Error()}
	default:
		return apiError{status: http.StatusInternalServerError, message: "internal error"}
	}
}

// handleError writes the mapped error envelope. Server errors are logged at error level, the
// rest at debug; coupon ineligibility keeps the precise reason in the log only.
func handleError(c *gin.Context, logger *zap.Logger, op string, err error) {
	mapped := errorStatus(err)
	code := mapped.status
	fields := []zap.Field{zap.Error(err), zap.String("path", c.FullPath())}
	if rid := c.GetString(RequestIDKey); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	switch {
	case code >= http.StatusInternalServerError:
		logger.Error(op+" failed", fields...)
	case code == http.StatusPaymentRequired || code == http.StatusConflict:
		logger.Warn(op+" rejected", fields...)
	default:
		logger.Debug(op+" rejected", fields...)
	}
	c.AbortWithStatusJSON(code, Response{
		Status:  "error",
		Code:    code,
		Message: mapped.message,
		Reason:  mapped.reason,
	})
}
