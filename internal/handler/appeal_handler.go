package handler

import (
	"net/http"

	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppealHandler 申诉 API
type AppealHandler struct {
	sessionService *service.SessionService
	logger         *zap.Logger
}

// NewAppealHandler 创建申诉处理器
func NewAppealHandler(sessionService *service.SessionService, logger *zap.Logger) *AppealHandler {
	return &AppealHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// Register 注册路由
func (h *AppealHandler) Register(api *gin.RouterGroup) {
	api.POST("/session/:id/appeal", h.Open)
	api.PUT("/session/:id/appeal", h.Update)
	api.DELETE("/session/:id/appeal", h.Cancel)
	api.POST("/session/:id/appeal/submit", h.Submit)
}

// Open 打开申诉草稿
func (h *AppealHandler) Open(c *gin.Context) {
	var req model.AppealOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" {
		badRequest(c)
		return
	}

	appeal, err := h.sessionService.OpenAppeal(c.Param("id"), req.MessageID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, gin.H{"success": true, "data": appeal})
}

// Update 更新申诉类型或详情
func (h *AppealHandler) Update(c *gin.Context) {
	var req model.AppealUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	appeal, err := h.sessionService.UpdateAppeal(c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": appeal})
}

// Submit 提交申诉
func (h *AppealHandler) Submit(c *gin.Context) {
	appeal, err := h.sessionService.SubmitAppeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("申诉已提交",
		zap.String("sessionId", c.Param("id")),
		zap.String("appealId", appeal.ID))

	h.respond(c, gin.H{
		"success": true,
		"message": "Thank you for your feedback. Your appeal has been submitted for review.",
		"data":    appeal,
	})
}

// respond 附带申诉额度后返回
func (h *AppealHandler) respond(c *gin.Context, body gin.H) {
	quota, err := h.sessionService.AppealQuota(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	body["quota"] = quota
	c.JSON(http.StatusOK, body)
}

// Cancel 取消申诉
func (h *AppealHandler) Cancel(c *gin.Context) {
	if err := h.sessionService.CancelAppeal(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
