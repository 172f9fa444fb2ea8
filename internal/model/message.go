package model

import (
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/google/uuid"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage 聊天消息。置信度、透明度记录和标记只出现在助手消息上
type ChatMessage struct {
	ID              string                     `json:"id"`
	Role            Role                       `json:"role"`
	Content         string                     `json:"content"`
	Timestamp       time.Time                  `json:"timestamp"`
	Confidence      *float64                   `json:"confidence,omitempty"`
	ConfidenceLevel string                     `json:"confidenceLevel,omitempty"`
	Transparency    *ethics.TransparencyRecord `json:"transparency,omitempty"`
	Flags           []string                   `json:"flags,omitempty"`
}

// NewUserMessage 创建用户消息
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage 创建助手消息，result 为 nil 表示未经评估
func NewAssistantMessage(content string, result *ethics.Result, record *ethics.TransparencyRecord) ChatMessage {
	msg := ChatMessage{
		ID:           uuid.New().String(),
		Role:         RoleAssistant,
		Content:      content,
		Timestamp:    time.Now(),
		Transparency: record,
	}
	if result != nil {
		confidence := result.Confidence
		msg.Confidence = &confidence
		msg.ConfidenceLevel = ethics.ConfidenceLevel(confidence)
		msg.Flags = append([]string{}, result.Flags...)
	}
	return msg
}

// WSMessage WebSocket 入站消息
type WSMessage struct {
	Type      string `json:"type"` // CHAT, HEARTBEAT
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content"`
}

// WebSocket 消息类型
const (
	WSTypeChat      = "CHAT"
	WSTypeHeartbeat = "HEARTBEAT"
	WSTypeMessage   = "MESSAGE"
	WSTypeError     = "ERROR"
)

// WSEnvelope WebSocket 出站消息
type WSEnvelope struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	SessionID string      `json:"sessionId"`
	Welcome   ChatMessage `json:"welcome"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Content string `json:"content"`
}

// TurnResponse 一轮对话：一条用户消息和一条助手消息
type TurnResponse struct {
	User      ChatMessage `json:"user"`
	Assistant ChatMessage `json:"assistant"`
}

// TransparencyResponse 透明度详情
type TransparencyResponse struct {
	MessageID       string                     `json:"messageId"`
	Confidence      *float64                   `json:"confidence,omitempty"`
	ConfidenceLevel string                     `json:"confidenceLevel,omitempty"`
	Flags           []string                   `json:"flags"`
	Record          *ethics.TransparencyRecord `json:"record"`
}

// AppealOpenRequest 打开申诉
type AppealOpenRequest struct {
	MessageID string `json:"messageId"`
}

// AppealUpdateRequest 更新申诉草稿，未提供的字段保持不变
type AppealUpdateRequest struct {
	Category *string `json:"category,omitempty"`
	Detail   *string `json:"detail,omitempty"`
}

// ConfigUpdateRequest 配置更新
type ConfigUpdateRequest struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CatalogCategory 分类触发词与敏感度
type CatalogCategory struct {
	Name        string   `json:"name"`
	Phrases     []string `json:"phrases"`
	Sensitivity string   `json:"sensitivity,omitempty"`
	Issue       string   `json:"issue,omitempty"`
}

// CatalogResponse 当前策略目录
type CatalogResponse struct {
	Categories []CatalogCategory `json:"categories"`
	Behavior   map[string]any    `json:"behavior"`
}

// AppealQuota 本会话申诉额度
type AppealQuota struct {
	Submitted int `json:"submitted"`
	Remaining int `json:"remaining"`
}
