package handler

import (
	"context"
	"net/http"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/middleware"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket 处理器
type WebSocketHandler struct {
	sessionService *service.SessionService
	chatService    *service.ChatService
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器，allowedOrigins 为空时不校验来源
func NewWebSocketHandler(sessionService *service.SessionService, chatService *service.ChatService, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessionService: sessionService,
		chatService:    chatService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// HandleWebSocket WebSocket 连接入口，会话需先通过登录接口创建
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if _, err := h.sessionService.Get(sessionID); err != nil {
		writeError(c, err)
		return
	}

	// 升级为 WebSocket 连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.sessionService.AttachConn(sessionID, conn)
	if err != nil {
		// 升级期间会话已登出
		return
	}
	defer session.DetachConn(conn)

	h.logger.Info("WebSocket 连接建立",
		zap.String("sessionId", sessionID),
		zap.String("clientIp", c.ClientIP()))

	ctx := c.Request.Context()

	// 消息循环
	for {
		var msg model.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		h.handleMessage(ctx, session, &msg)
	}

	h.logger.Info("WebSocket 连接断开", zap.String("sessionId", sessionID))
}

// handleMessage 处理入站消息
func (h *WebSocketHandler) handleMessage(ctx context.Context, session *model.Session, msg *model.WSMessage) {
	switch msg.Type {
	case model.WSTypeChat:
		// 异步处理，读循环继续接收心跳
		go h.handleChat(ctx, session, msg.Content)

	case model.WSTypeHeartbeat:
		h.sessionService.UpdateHeartbeat(session.ID)

	default:
		h.logger.Warn("未知消息类型",
			zap.String("sessionId", session.ID),
			zap.String("type", msg.Type))
	}
}

// handleChat 依次推送用户消息回显和助手回复
func (h *WebSocketHandler) handleChat(ctx context.Context, session *model.Session, content string) {
	turn, err := h.chatService.HandleUserMessage(ctx, session, content)
	if err != nil {
		h.send(session, model.WSEnvelope{
			Type:  model.WSTypeError,
			Error: ethics.UserMessage(err, "Unable to process message."),
		})
		return
	}

	h.send(session, model.WSEnvelope{Type: model.WSTypeMessage, Message: &turn.User})
	h.send(session, model.WSEnvelope{Type: model.WSTypeMessage, Message: &turn.Assistant})
}

func (h *WebSocketHandler) send(session *model.Session, envelope model.WSEnvelope) {
	if err := session.WriteMessage(envelope); err != nil {
		h.logger.Warn("消息推送失败",
			zap.String("sessionId", session.ID),
			zap.Error(err))
	}
}
