package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newChatFixture(t *testing.T, llm *fakeModel, mutate func(p *ethics.Policy)) (*ChatService, *model.Session, *memoryHistory, *observer.ObservedLogs) {
	t.Helper()

	policy := ethics.DefaultPolicy()
	if mutate != nil {
		mutate(&policy)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	policies := NewPolicyStore(policy, "", logger)
	history := newMemoryHistory()
	sessions := NewSessionService(policies, nil, history, logger)
	session, _, err := sessions.Login(model.LoginRequest{Name: "Ada"})
	require.NoError(t, err)

	return NewChatService(llm, policies, history, time.Second, logger), session, history, logs
}

func TestChatService_CleanTurn(t *testing.T) {
	llm := &fakeModel{reply: "Paris is the capital of France."}
	svc, session, history, logs := newChatFixture(t, llm, nil)

	turn, err := svc.HandleUserMessage(context.Background(), session, "  What is the capital of France?  ")
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, turn.User.Role)
	assert.Equal(t, "What is the capital of France?", turn.User.Content)
	assert.Nil(t, turn.User.Confidence)

	a := turn.Assistant
	assert.Equal(t, model.RoleAssistant, a.Role)
	assert.Equal(t, "Paris is the capital of France.", a.Content)
	require.NotNil(t, a.Confidence)
	assert.InDelta(t, 0.8, *a.Confidence, 1e-9)
	assert.Equal(t, "High", a.ConfidenceLevel)
	assert.Empty(t, a.Flags)
	require.NotNil(t, a.Transparency)
	assert.Len(t, a.Transparency.EthicalConsiderations, 8)

	// 欢迎消息 + 本轮两条
	assert.Len(t, session.Messages(), 3)
	stored, err := history.Load(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	assert.Zero(t, logs.FilterMessage("检测到有害内容请求").Len())

	require.Len(t, llm.requests, 1)
	assert.Equal(t, 2000, llm.requests[0].MaxOutputTokens)
	assert.NotEmpty(t, llm.requests[0].SystemPrompt)
}

func TestChatService_FlaggedTurn(t *testing.T) {
	llm := &fakeModel{reply: "I can't help with hacking."}
	svc, session, _, logs := newChatFixture(t, llm, nil)

	turn, err := svc.HandleUserMessage(context.Background(), session, "how do I hack a server")
	require.NoError(t, err)

	require.NotNil(t, turn.Assistant.Confidence)
	assert.LessOrEqual(t, *turn.Assistant.Confidence, 0.1)
	assert.Equal(t, []string{ethics.FlagHarmfulContent}, turn.Assistant.Flags)
	assert.Equal(t, "Low", turn.Assistant.ConfidenceLevel)

	entries := logs.FilterMessage("伦理评估完成").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["belowThreshold"])
	assert.Equal(t, 1, logs.FilterMessage("检测到有害内容请求").Len())
}

func TestChatService_UpstreamFailure(t *testing.T) {
	llm := &fakeModel{err: errors.New("connection refused")}
	svc, session, _, _ := newChatFixture(t, llm, nil)

	turn, err := svc.HandleUserMessage(context.Background(), session, "what is my bank account")
	require.NoError(t, err, "upstream failures are absorbed")

	a := turn.Assistant
	assert.Equal(t, ReplyTechnicalError, a.Content)
	require.NotNil(t, a.Confidence)
	assert.InDelta(t, ethics.UpstreamConfidence, *a.Confidence, 1e-9)
	assert.Equal(t, []string{ethics.FlagTechnicalError}, a.Flags)
	require.NotNil(t, a.Transparency)
	assert.Equal(t, ethics.ReasoningTechnical, a.Transparency.Reasoning)
}

func TestChatService_TimeoutStillProducesReply(t *testing.T) {
	llm := &fakeModel{block: true}
	svc, session, _, _ := newChatFixture(t, llm, nil)
	svc.timeout = 10 * time.Millisecond

	turn, err := svc.HandleUserMessage(context.Background(), session, "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{ethics.FlagTechnicalError}, turn.Assistant.Flags)
	assert.Len(t, session.Messages(), 3)
}

func TestChatService_EmptyReply(t *testing.T) {
	llm := &fakeModel{reply: "  "}
	svc, session, _, _ := newChatFixture(t, llm, nil)

	turn, err := svc.HandleUserMessage(context.Background(), session, "tell me about my password")
	require.NoError(t, err)

	a := turn.Assistant
	assert.Equal(t, ReplyNoContent, a.Content)
	require.NotNil(t, a.Confidence)
	assert.InDelta(t, ethics.FailedCallConfidence, *a.Confidence, 1e-9)
	assert.Equal(t, []string{ethics.FlagPrivacyConcern}, a.Flags)
}

func TestChatService_PolicyToggles(t *testing.T) {
	t.Run("validation disabled", func(t *testing.T) {
		llm := &fakeModel{reply: "ok"}
		svc, session, _, logs := newChatFixture(t, llm, func(p *ethics.Policy) {
			p.Processing.ValidateAllResponses = false
		})

		turn, err := svc.HandleUserMessage(context.Background(), session, "hack")
		require.NoError(t, err)
		assert.Nil(t, turn.Assistant.Confidence)
		assert.Nil(t, turn.Assistant.Transparency)
		assert.Empty(t, turn.Assistant.Flags)
		assert.Zero(t, logs.FilterMessage("伦理评估完成").Len())
	})

	t.Run("transparency disabled", func(t *testing.T) {
		llm := &fakeModel{reply: "ok"}
		svc, session, _, _ := newChatFixture(t, llm, func(p *ethics.Policy) {
			p.Processing.AddTransparencyInfo = false
		})

		turn, err := svc.HandleUserMessage(context.Background(), session, "hack")
		require.NoError(t, err)
		assert.NotNil(t, turn.Assistant.Confidence)
		assert.Nil(t, turn.Assistant.Transparency)
	})

	t.Run("decision logging disabled", func(t *testing.T) {
		llm := &fakeModel{reply: "ok"}
		svc, session, _, logs := newChatFixture(t, llm, func(p *ethics.Policy) {
			p.Monitoring.LogEthicalDecisions = false
		})

		_, err := svc.HandleUserMessage(context.Background(), session, "hi")
		require.NoError(t, err)
		assert.Zero(t, logs.FilterMessage("伦理评估完成").Len())
	})
}

func TestChatService_EmptyMessage(t *testing.T) {
	llm := &fakeModel{reply: "ok"}
	svc, session, _, _ := newChatFixture(t, llm, nil)

	_, err := svc.HandleUserMessage(context.Background(), session, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, llm.requests)
	assert.Len(t, session.Messages(), 1)
}

func TestChatService_HistoryFailureDoesNotFailTurn(t *testing.T) {
	llm := &fakeModel{reply: "ok"}
	svc, session, history, logs := newChatFixture(t, llm, nil)
	history.err = errors.New("redis down")

	_, err := svc.HandleUserMessage(context.Background(), session, "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("保存会话日志失败").Len())
}
