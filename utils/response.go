package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope wraps every API answer. Code is 0 on success; failures carry a five
// digit business code whose first three digits repeat the HTTP status.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func envelope(code int, message string, data interface{}) Envelope {
	return Envelope{Code: code, Message: message, Data: data}
}

// Success answers 200 with data.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, envelope(0, "success", data))
}

// Error answers status with a business code and no data.
func Error(ctx *gin.Context, status, code int, message string) {
	ctx.JSON(status, envelope(code, message, nil))
}

// AbortError is Error for middleware: the remaining handlers are skipped.
func AbortError(ctx *gin.Context, status, code int, message string) {
	ctx.AbortWithStatusJSON(status, envelope(code, message, nil))
}
