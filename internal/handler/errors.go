package handler

import (
	"errors"
	"net/http"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
)

// statusFor 错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrNoTransparency):
		return http.StatusNotFound
	case errors.Is(err, ethics.ErrLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ethics.ErrAppealsDisabled):
		return http.StatusForbidden
	case errors.Is(err, ethics.ErrNoActiveAppeal),
		errors.Is(err, ethics.ErrAppealInFlight):
		return http.StatusConflict
	case errors.Is(err, ethics.ErrValidation),
		errors.Is(err, ethics.ErrUnknownPath),
		errors.Is(err, ethics.ErrInvalidValue),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidLogin),
		errors.Is(err, service.ErrNotAssistantMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError 统一错误响应
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := ethics.UserMessage(err, err.Error())
	if status == http.StatusInternalServerError {
		message = ethics.UserMessage(err, "internal error")
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
}
