package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/client"
	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"go.uber.org/zap"
)

// ErrEmptyMessage 用户消息为空
var ErrEmptyMessage = errors.New("message content is empty")

// 模型调用失败时展示给用户的回复
const (
	ReplyNoContent      = "I'm sorry, I couldn't process your request at the moment. Please try again."
	ReplyTechnicalError = "I'm experiencing technical difficulties. Please try again in a moment."
)

// ChatService 聊天服务：每条用户消息产生且只产生一条助手消息
type ChatService struct {
	llmClient client.ModelClient
	policies  *PolicyStore
	history   HistoryStore
	timeout   time.Duration
	logger    *zap.Logger
}

// NewChatService 创建聊天服务，history 可以为 nil
func NewChatService(llmClient client.ModelClient, policies *PolicyStore, history HistoryStore, timeout time.Duration, logger *zap.Logger) *ChatService {
	return &ChatService{
		llmClient: llmClient,
		policies:  policies,
		history:   history,
		timeout:   timeout,
		logger:    logger,
	}
}

// HandleUserMessage 处理一轮对话
func (s *ChatService) HandleUserMessage(ctx context.Context, session *model.Session, content string) (model.TurnResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.TurnResponse{}, ethics.NewUserError("Please enter a message.", ErrEmptyMessage)
	}

	session.LockTurn()
	defer session.UnlockTurn()

	if session.Closed() {
		return model.TurnResponse{}, ErrSessionNotFound
	}

	s.logger.Info("处理用户消息",
		zap.String("sessionId", session.ID),
		zap.Int("length", len(content)))

	userMsg := model.NewUserMessage(content)
	session.AppendMessage(userMsg)

	assistantMsg := s.reply(ctx, session.ID, content)
	session.AppendMessage(assistantMsg)

	if s.history != nil {
		// 请求被取消时仍然保存本轮结果
		if err := s.history.Append(context.WithoutCancel(ctx), session.ID, userMsg, assistantMsg); err != nil {
			s.logger.Error("保存会话日志失败",
				zap.String("sessionId", session.ID),
				zap.Error(err))
		}
	}

	return model.TurnResponse{User: userMsg, Assistant: assistantMsg}, nil
}

// reply 调用模型并对回复评估
func (s *ChatService) reply(ctx context.Context, sessionID, content string) model.ChatMessage {
	policy := s.policies.Snapshot()
	evaluator := ethics.NewEvaluator(s.policies.Catalog())

	text, err := s.complete(ctx, content, policy.Processing.MaxResponseLength)

	var result *ethics.Result
	switch {
	case err != nil:
		s.logger.Warn("模型调用失败",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		failure := evaluator.EvaluateFailure()
		result = &failure
		text = ReplyTechnicalError
	case strings.TrimSpace(text) == "":
		s.logger.Warn("模型未返回内容", zap.String("sessionId", sessionID))
		r := evaluator.Evaluate(content, "")
		result = &r
		text = ReplyNoContent
	case policy.Processing.ValidateAllResponses:
		r := evaluator.Evaluate(content, text)
		result = &r
	}

	var record *ethics.TransparencyRecord
	if result != nil && policy.Processing.AddTransparencyInfo {
		record = ethics.Record(*result)
	}

	if result != nil && policy.Monitoring.LogEthicalDecisions {
		s.logger.Info("伦理评估完成",
			zap.String("sessionId", sessionID),
			zap.Float64("confidence", result.Confidence),
			zap.Strings("flags", result.Flags),
			zap.String("reasoning", result.Reasoning),
			zap.Bool("belowThreshold", result.Confidence < policy.Behavior.ConfidenceThreshold))

		if result.HasFlag(ethics.FlagHarmfulContent) {
			s.logger.Warn("检测到有害内容请求", zap.String("sessionId", sessionID))
		}
	}

	return model.NewAssistantMessage(text, result, record)
}

func (s *ChatService) complete(ctx context.Context, content string, maxTokens int) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.llmClient.Complete(ctx, client.CompletionRequest{
		SystemPrompt:    client.EthicalSystemPrompt,
		UserMessage:     content,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ethics.ErrUpstreamFailure, err)
	}
	return text, nil
}
