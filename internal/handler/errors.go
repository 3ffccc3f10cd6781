package handler

import (
	"errors"
	"net/http"

	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError 按错误类型映射 HTTP 状态码
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var perr *service.ProviderError
	switch {
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, service.ErrUnknownTemplate):
		status = http.StatusBadRequest
	case errors.As(err, &perr):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
