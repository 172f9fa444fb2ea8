package model

import (
	"errors"
	"sync"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/gorilla/websocket"
)

// ErrNoConnection 会话没有 WebSocket 连接
var ErrNoConnection = errors.New("session has no websocket connection")

// Session 用户会话
type Session struct {
	ID            string
	UserName      string
	Email         string
	CreatedAt     time.Time
	Conn          *websocket.Conn
	LastHeartbeat time.Time
	MissedBeats   int
	Appeals       *ethics.AppealWorkflow

	messages []ChatMessage
	closed   bool
	mu       sync.RWMutex // 保护会话字段
	writeMu  sync.Mutex   // 串行化 WebSocket 写入
	turnMu   sync.Mutex   // 同一会话同时只处理一轮对话
}

// UpdateHeartbeat 更新心跳时间
func (s *Session) UpdateHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeartbeat = time.Now()
	s.MissedBeats = 0
}

// IncrementMissedBeats 增加丢失心跳次数
func (s *Session) IncrementMissedBeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MissedBeats++
	return s.MissedBeats
}

// SinceHeartbeat 距上次心跳的时间
func (s *Session) SinceHeartbeat(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.LastHeartbeat)
}

// ShouldBeCleaned 判断是否应该清理
func (s *Session) ShouldBeCleaned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MissedBeats >= 3
}

// AttachConn 绑定 WebSocket 连接，返回被替换的旧连接
func (s *Session) AttachConn(conn *websocket.Conn) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.Conn
	s.Conn = conn
	s.LastHeartbeat = time.Now()
	s.MissedBeats = 0
	return old
}

// Connection 当前连接
func (s *Session) Connection() *websocket.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Conn
}

// DetachConn 解绑连接（仅当仍是同一连接时）
func (s *Session) DetachConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Conn == conn {
		s.Conn = nil
	}
}

// WriteMessage 向 WebSocket 写入消息（线程安全）
func (s *Session) WriteMessage(message interface{}) error {
	s.mu.RLock()
	conn := s.Conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNoConnection
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(message)
}

// AppendMessage 追加消息到会话日志
func (s *Session) AppendMessage(msgs ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// Messages 返回会话日志副本
func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.messages...)
}

// FindMessage 按 ID 查找消息
func (s *Session) FindMessage(id string) (ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return ChatMessage{}, false
}

// ClearMessages 清空会话日志（仅登出时调用）
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// MarkClosed 标记会话已登出，之后的对话轮次不再写入
func (s *Session) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed 会话是否已登出
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// LockTurn 开始一轮对话
func (s *Session) LockTurn() {
	s.turnMu.Lock()
}

// UnlockTurn 结束一轮对话
func (s *Session) UnlockTurn() {
	s.turnMu.Unlock()
}
