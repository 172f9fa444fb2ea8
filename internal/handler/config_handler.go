package handler

import (
	"net/http"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConfigHandler 伦理策略 API
type ConfigHandler struct {
	policies *service.PolicyStore
	logger   *zap.Logger
}

// NewConfigHandler 创建策略处理器
func NewConfigHandler(policies *service.PolicyStore, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{
		policies: policies,
		logger:   logger,
	}
}

// Register 注册路由
func (h *ConfigHandler) Register(api *gin.RouterGroup) {
	api.GET("/config", h.Get)
	api.PUT("/config", h.Update)
	api.GET("/config/validate", h.Validate)
	api.POST("/config/reset", h.Reset)
	api.GET("/catalog", h.Catalog)
}

// Get 读取策略，path 为空时返回完整策略
func (h *ConfigHandler) Get(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": h.policies.Snapshot()})
		return
	}

	value, ok := h.policies.Get(path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": ethics.ErrUnknownPath.Error(),
			"data":    gin.H{"path": path, "found": false},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"path": path, "found": true, "value": value}})
}

// Update 按路径更新策略
func (h *ConfigHandler) Update(c *gin.Context) {
	var req model.ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		badRequest(c)
		return
	}

	report, err := h.policies.Update(req.Path, req.Value)
	if err != nil {
		h.logger.Warn("策略更新失败",
			zap.String("path", req.Path),
			zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// Validate 校验当前策略
func (h *ConfigHandler) Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.policies.Validate()})
}

// Catalog 当前策略目录：触发词、敏感度和 behavior 开关
func (h *ConfigHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": service.DescribeCatalog(h.policies.Catalog())})
}

// Reset 恢复默认策略
func (h *ConfigHandler) Reset(c *gin.Context) {
	if err := h.policies.Reset(); err != nil {
		h.logger.Error("策略重置失败", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.policies.Snapshot()})
}
