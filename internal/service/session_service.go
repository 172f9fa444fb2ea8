package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotAssistantMessage = errors.New("only assistant messages can be appealed")
	ErrNoTransparency      = errors.New("message has no transparency record")
	ErrInvalidLogin        = errors.New("name is required")
)

// 心跳参数
const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultHeartbeatTimeout  = 60 * time.Second
)

const welcomeTemplate = "Hello %s! I'm your friendly ethical AI assistant, and I'm absolutely delighted to meet you! " +
	"I'm here to provide transparent, caring, and helpful responses. What wonderful conversation shall we have today?"

// SessionService 会话管理服务
type SessionService struct {
	sessions  map[string]*model.Session // sessionId -> session
	mu        sync.RWMutex              // 读写锁保护
	policies  *PolicyStore
	submitter ethics.AppealSubmitter
	history   HistoryStore
	logger    *zap.Logger

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewSessionService 创建会话管理服务，心跳检测需调用 Run 启动
func NewSessionService(policies *PolicyStore, submitter ethics.AppealSubmitter, history HistoryStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:          make(map[string]*model.Session),
		policies:          policies,
		submitter:         submitter,
		history:           history,
		logger:            logger,
		heartbeatInterval: defaultHeartbeatInterval,
		heartbeatTimeout:  defaultHeartbeatTimeout,
	}
}

// Login 创建会话并写入欢迎消息
func (s *SessionService) Login(req model.LoginRequest) (*model.Session, model.ChatMessage, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.ChatMessage{}, ethics.NewUserError("Please tell us your name.", ErrInvalidLogin)
	}

	sessionID := uuid.New().String()
	session := &model.Session{
		ID:            sessionID,
		UserName:      name,
		Email:         strings.TrimSpace(req.Email),
		CreatedAt:     time.Now(),
		LastHeartbeat: time.Now(),
		Appeals:       ethics.NewAppealWorkflow(sessionID, s.policies.Snapshot(), s.submitter),
	}

	welcome := model.NewAssistantMessage(
		fmt.Sprintf(welcomeTemplate, name),
		&ethics.Result{
			Confidence: 0.95,
			Reasoning:  ethics.WelcomeRecord().Reasoning,
			Flags:      []string{},
		},
		ethics.WelcomeRecord(),
	)
	session.AppendMessage(welcome)

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	s.logger.Info("用户会话注册成功",
		zap.String("sessionId", sessionID),
		zap.String("name", name))

	return session, welcome, nil
}

// Get 获取会话
func (s *SessionService) Get(sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Logout 登出：清空会话日志、丢弃申诉草稿、关闭连接
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	// 等待进行中的一轮对话结束，避免其结果在清理后写回
	session.LockTurn()
	defer session.UnlockTurn()

	session.MarkClosed()
	session.ClearMessages()
	session.Appeals.Cancel()
	if conn := session.AttachConn(nil); conn != nil {
		conn.Close()
	}

	if s.history != nil {
		if err := s.history.Clear(ctx, sessionID); err != nil {
			s.logger.Error("清理会话日志失败",
				zap.String("sessionId", sessionID),
				zap.Error(err))
		}
	}

	s.logger.Info("用户会话已移除", zap.String("sessionId", sessionID))
	return nil
}

// AttachConn 绑定 WebSocket 连接，关闭旧连接
func (s *SessionService) AttachConn(sessionID string, conn *websocket.Conn) (*model.Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if old := session.AttachConn(conn); old != nil && old != conn {
		s.logger.Info("用户重新连接，关闭旧连接", zap.String("sessionId", sessionID))
		old.Close()
	}
	return session, nil
}

// SendMessage 向会话推送消息
func (s *SessionService) SendMessage(sessionID string, message interface{}) error {
	session, err := s.Get(sessionID)
	if err != nil {
		s.logger.Warn("会话不存在，消息发送失败", zap.String("sessionId", sessionID))
		return err
	}

	if err := session.WriteMessage(message); err != nil {
		s.logger.Error("消息发送失败",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		return err
	}
	return nil
}

// UpdateHeartbeat 更新心跳时间
func (s *SessionService) UpdateHeartbeat(sessionID string) bool {
	session, err := s.Get(sessionID)
	if err != nil {
		return false
	}

	session.UpdateHeartbeat()
	s.logger.Debug("心跳已更新", zap.String("sessionId", sessionID))
	return true
}

// Transparency 查询消息的透明度记录
func (s *SessionService) Transparency(sessionID, messageID string) (model.TransparencyResponse, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return model.TransparencyResponse{}, err
	}

	msg, ok := session.FindMessage(messageID)
	if !ok {
		return model.TransparencyResponse{}, ErrMessageNotFound
	}
	if msg.Transparency == nil {
		return model.TransparencyResponse{}, ErrNoTransparency
	}

	flags := msg.Flags
	if flags == nil {
		flags = []string{}
	}
	return model.TransparencyResponse{
		MessageID:       msg.ID,
		Confidence:      msg.Confidence,
		ConfidenceLevel: msg.ConfidenceLevel,
		Flags:           flags,
		Record:          msg.Transparency,
	}, nil
}

// OpenAppeal 针对助手消息打开申诉
func (s *SessionService) OpenAppeal(sessionID, messageID string) (ethics.Appeal, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return ethics.Appeal{}, err
	}

	msg, ok := session.FindMessage(messageID)
	if !ok {
		return ethics.Appeal{}, ErrMessageNotFound
	}
	if msg.Role != model.RoleAssistant {
		return ethics.Appeal{}, ethics.NewUserError("Only assistant replies can be appealed.", ErrNotAssistantMessage)
	}

	return session.Appeals.Open(messageID)
}

// UpdateAppeal 更新申诉草稿
func (s *SessionService) UpdateAppeal(sessionID string, req model.AppealUpdateRequest) (ethics.Appeal, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return ethics.Appeal{}, err
	}

	if req.Category != nil {
		category, err := ethics.ParseAppealCategory(*req.Category)
		if err != nil {
			return ethics.Appeal{}, err
		}
		if err := session.Appeals.SelectCategory(category); err != nil {
			return ethics.Appeal{}, err
		}
	}
	if req.Detail != nil {
		if err := session.Appeals.SetDetail(*req.Detail); err != nil {
			return ethics.Appeal{}, err
		}
	}

	appeal, ok := session.Appeals.Active()
	if !ok {
		return ethics.Appeal{}, ethics.ErrNoActiveAppeal
	}
	return appeal, nil
}

// SubmitAppeal 提交申诉
func (s *SessionService) SubmitAppeal(ctx context.Context, sessionID string) (ethics.Appeal, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return ethics.Appeal{}, err
	}

	appeal, err := session.Appeals.Submit(ctx)
	if err != nil {
		s.logger.Info("申诉未提交",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		return ethics.Appeal{}, err
	}
	return appeal, nil
}

// CancelAppeal 取消申诉
func (s *SessionService) CancelAppeal(sessionID string) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	session.Appeals.Cancel()
	return nil
}

// AppealQuota 本会话已提交与剩余的申诉次数
func (s *SessionService) AppealQuota(sessionID string) (model.AppealQuota, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return model.AppealQuota{}, err
	}
	return model.AppealQuota{
		Submitted: session.Appeals.Submitted(),
		Remaining: session.Appeals.Remaining(),
	}, nil
}

// StoredHistory 读取外部存储中的会话日志，未配置存储时返回内存日志
func (s *SessionService) StoredHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return session.Messages(), nil
	}
	return s.history.Load(ctx, sessionID)
}

// GetOnlineCount 获取会话数
func (s *SessionService) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run 心跳检测，直到 ctx 结束
func (s *SessionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.checkHeartbeats(now)
		}
	}
}

// checkHeartbeats 连续丢失心跳的连接会被断开，会话本身保留到登出
func (s *SessionService) checkHeartbeats(now time.Time) {
	s.mu.RLock()
	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		conn := session.Connection()
		if conn == nil || session.SinceHeartbeat(now) <= s.heartbeatTimeout {
			continue
		}

		missed := session.IncrementMissedBeats()
		if session.ShouldBeCleaned() {
			s.logger.Info("清理无效连接",
				zap.String("sessionId", session.ID),
				zap.Int("missedBeats", missed))
			session.DetachConn(conn)
			conn.Close()
		} else {
			s.logger.Warn("用户心跳丢失",
				zap.String("sessionId", session.ID),
				zap.Int("missedBeats", missed))
		}
	}
}
