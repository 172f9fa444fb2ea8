package handler

import (
	"net/http"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler 会话与聊天 API
type APIHandler struct {
	sessionService *service.SessionService
	chatService    *service.ChatService
	logger         *zap.Logger
}

// NewAPIHandler 创建 API 处理器
func NewAPIHandler(sessionService *service.SessionService, chatService *service.ChatService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		sessionService: sessionService,
		chatService:    chatService,
		logger:         logger,
	}
}

// Register 注册路由
func (h *APIHandler) Register(api *gin.RouterGroup) {
	api.GET("/health", h.Health)
	api.GET("/quick-replies", h.QuickReplies)
	api.GET("/appeal-categories", h.AppealCategories)

	api.POST("/session/login", h.Login)
	api.POST("/session/:id/logout", h.Logout)
	api.GET("/session/:id/messages", h.Messages)
	api.GET("/session/:id/history", h.History)
	api.POST("/session/:id/chat", h.Chat)
	api.GET("/session/:id/messages/:msgId/transparency", h.Transparency)
}

// Login 用户登录
func (h *APIHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	session, welcome, err := h.sessionService.Login(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": model.LoginResponse{
			SessionID: session.ID,
			Welcome:   welcome,
		},
	})
}

// Logout 用户登出
func (h *APIHandler) Logout(c *gin.Context) {
	if err := h.sessionService.Logout(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Messages 会话消息日志
func (h *APIHandler) Messages(c *gin.Context) {
	session, err := h.sessionService.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session.Messages()})
}

// History 外部存储中的会话日志
func (h *APIHandler) History(c *gin.Context) {
	msgs, err := h.sessionService.StoredHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": msgs})
}

// Chat 发送消息并同步返回助手回复
func (h *APIHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	session, err := h.sessionService.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	turn, err := h.chatService.HandleUserMessage(c.Request.Context(), session, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": turn})
}

// Transparency 消息透明度详情
func (h *APIHandler) Transparency(c *gin.Context) {
	resp, err := h.sessionService.Transparency(c.Param("id"), c.Param("msgId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

// QuickReplies 快捷回复
func (h *APIHandler) QuickReplies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": model.QuickReplies()})
}

// AppealCategories 申诉类型
func (h *APIHandler) AppealCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": ethics.AppealCategories()})
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "UP",
		"service":         c.GetString("service_name"),
		"active_sessions": h.sessionService.GetOnlineCount(),
	})
}
