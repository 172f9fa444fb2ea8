package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/client"
	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubModel struct {
	reply string
}

func (m stubModel) Complete(context.Context, client.CompletionRequest) (string, error) {
	return m.reply, nil
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func newRouter(t *testing.T, reply string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	policies := service.NewPolicyStore(ethics.DefaultPolicy(), "", logger)
	appeals := service.NewAppealService(nil, policies, logger)
	sessions := service.NewSessionService(policies, appeals, nil, logger)
	chat := service.NewChatService(stubModel{reply: reply}, policies, nil, time.Second, logger)

	r := gin.New()
	api := r.Group("/api")
	NewAPIHandler(sessions, chat, logger).Register(api)
	NewAppealHandler(sessions, logger).Register(api)
	NewConfigHandler(policies, logger).Register(api)
	r.GET("/ws", NewWebSocketHandler(sessions, chat, nil, logger).HandleWebSocket)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeQuota(t *testing.T, w *httptest.ResponseRecorder) model.AppealQuota {
	t.Helper()
	var out struct {
		Quota model.AppealQuota `json:"quota"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Quota
}

func login(t *testing.T, r http.Handler) model.LoginResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/session/login", model.LoginRequest{Name: "Ada", Email: "ada@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.LoginResponse](t, w).Data
}

func TestLoginAndChat(t *testing.T) {
	r := newRouter(t, "According to NASA, the moon is about 384,400 km away.")
	sess := login(t, r)
	assert.NotEmpty(t, sess.SessionID)
	assert.Contains(t, sess.Welcome.Content, "Ada")

	w := do(t, r, http.MethodPost, "/api/session/"+sess.SessionID+"/chat", model.ChatRequest{Content: "How far is the moon?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turn := decode[model.TurnResponse](t, w).Data

	require.NotNil(t, turn.Assistant.Confidence)
	assert.InDelta(t, 0.9, *turn.Assistant.Confidence, 1e-9)
	assert.Equal(t, "High", turn.Assistant.ConfidenceLevel)

	w = do(t, r, http.MethodGet, "/api/session/"+sess.SessionID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.ChatMessage](t, w).Data, 3)

	w = do(t, r, http.MethodGet, "/api/session/"+sess.SessionID+"/messages/"+turn.Assistant.ID+"/transparency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[model.TransparencyResponse](t, w).Data
	assert.Equal(t, ethics.ReasoningFactual, tr.Record.Reasoning)

	w = do(t, r, http.MethodGet, "/api/session/"+sess.SessionID+"/messages/"+turn.User.ID+"/transparency", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorStatuses(t *testing.T) {
	r := newRouter(t, "ok")

	w := do(t, r, http.MethodPost, "/api/session/login", model.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please tell us your name.", decode[any](t, w).Message)

	w = do(t, r, http.MethodPost, "/api/session/missing/chat", model.ChatRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	sess := login(t, r)
	w = do(t, r, http.MethodPost, "/api/session/"+sess.SessionID+"/chat", model.ChatRequest{Content: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/session/"+sess.SessionID+"/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/api/session/"+sess.SessionID+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppealEndpoints(t *testing.T) {
	r := newRouter(t, "ok")
	sess := login(t, r)
	base := "/api/session/" + sess.SessionID + "/appeal"

	w := do(t, r, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, base, model.AppealOpenRequest{MessageID: sess.Welcome.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.AppealQuota{Submitted: 0, Remaining: 10}, decodeQuota(t, w))

	w = do(t, r, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select an appeal type and provide details.", decode[any](t, w).Message)

	category, detail := "factual", "The distance is wrong."
	w = do(t, r, http.MethodPut, base, model.AppealUpdateRequest{Category: &category, Detail: &detail})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[ethics.Appeal](t, w).Data
	assert.Equal(t, ethics.AppealSubmitted, got.Status)
	assert.Equal(t, sess.Welcome.ID, got.TargetMessageID)
	assert.Equal(t, model.AppealQuota{Submitted: 1, Remaining: 9}, decodeQuota(t, w))

	w = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAppealLimitReturns429(t *testing.T) {
	r := newRouter(t, "ok")
	w := do(t, r, http.MethodPut, "/api/config", model.ConfigUpdateRequest{Path: "appeals.maxAppealsPerSession", Value: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sess := login(t, r)
	base := "/api/session/" + sess.SessionID + "/appeal"
	category, detail := "bias", "unfair"

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w = do(t, r, http.MethodPost, base, model.AppealOpenRequest{MessageID: sess.Welcome.ID})
		require.Equal(t, http.StatusOK, w.Code, "open %d", i)
		w = do(t, r, http.MethodPut, base, model.AppealUpdateRequest{Category: &category, Detail: &detail})
		require.Equal(t, http.StatusOK, w.Code, "update %d", i)
		w = do(t, r, http.MethodPost, base+"/submit", nil)
		assert.Equal(t, want, w.Code, "submit %d", i)
	}
}

func TestConfigEndpoints(t *testing.T) {
	r := newRouter(t, "ok")

	w := do(t, r, http.MethodGet, "/api/config?path=behavior.confidenceThreshold", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[map[string]any](t, w).Data
	assert.Equal(t, 0.7, found["value"])
	assert.Equal(t, true, found["found"])

	w = do(t, r, http.MethodGet, "/api/config?path=behavior.nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	missing := decode[map[string]any](t, w)
	assert.False(t, missing.Success)
	assert.Equal(t, false, missing.Data["found"])
	assert.Equal(t, "behavior.nope", missing.Data["path"])

	w = do(t, r, http.MethodPut, "/api/config", model.ConfigUpdateRequest{Path: "patternSensitivity.bias", Value: "extreme"})
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[ethics.ValidationReport](t, w).Data
	assert.False(t, report.Valid)

	w = do(t, r, http.MethodGet, "/api/config/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Invalid sensitivity level for bias: extreme"}, decode[ethics.ValidationReport](t, w).Data.Issues)

	w = do(t, r, http.MethodPut, "/api/config", model.ConfigUpdateRequest{Path: "behavior.strictMode", Value: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/config/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/api/config/validate", nil)
	assert.True(t, decode[ethics.ValidationReport](t, w).Data.Valid)
}

func TestCatalogEndpoints(t *testing.T) {
	r := newRouter(t, "ok")

	w := do(t, r, http.MethodGet, "/api/quick-replies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.QuickReply](t, w).Data, 4)

	w = do(t, r, http.MethodGet, "/api/appeal-categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]ethics.AppealCategoryInfo](t, w).Data, 3)

	w = do(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	catalog := decode[model.CatalogResponse](t, w).Data
	assert.Len(t, catalog.Categories, 6)
	assert.Equal(t, "sensitive-data", catalog.Categories[0].Name)
	assert.Equal(t, "high", catalog.Categories[0].Sensitivity)
	assert.Equal(t, "high", catalog.Behavior["transparencyLevel"])
}

func TestHistoryEndpoint(t *testing.T) {
	r := newRouter(t, "ok")
	sess := login(t, r)

	w := do(t, r, http.MethodPost, "/api/session/"+sess.SessionID+"/chat", model.ChatRequest{Content: "hi"})
	require.Equal(t, http.StatusOK, w.Code)

	// 未配置外部存储时返回内存日志
	w = do(t, r, http.MethodGet, "/api/session/"+sess.SessionID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.ChatMessage](t, w).Data, 3)

	w = do(t, r, http.MethodGet, "/api/session/missing/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketChat(t *testing.T) {
	r := newRouter(t, "Paris.")
	srv := httptest.NewServer(r)
	defer srv.Close()

	sess := login(t, r)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sessionId=" + sess.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(model.WSMessage{Type: model.WSTypeHeartbeat}))
	require.NoError(t, conn.WriteJSON(model.WSMessage{Type: model.WSTypeChat, Content: "Capital of France?"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first, second model.WSEnvelope
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	require.NotNil(t, first.Message)
	require.NotNil(t, second.Message)
	assert.Equal(t, model.RoleUser, first.Message.Role)
	assert.Equal(t, model.RoleAssistant, second.Message.Role)
	assert.Equal(t, "Paris.", second.Message.Content)
}

func TestWebSocketUnknownSession(t *testing.T) {
	r := newRouter(t, "ok")
	w := do(t, r, http.MethodGet, "/ws?sessionId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
