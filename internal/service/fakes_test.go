package service

import (
	"context"
	"sync"

	"github.com/ethicalbot/ethicalbot-go/internal/client"
	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
)

type fakeModel struct {
	reply    string
	err      error
	block    bool
	requests []client.CompletionRequest
	mu       sync.Mutex
}

func (f *fakeModel) Complete(ctx context.Context, req client.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type memoryHistory struct {
	mu       sync.Mutex
	messages map[string][]model.ChatMessage
	err      error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{messages: make(map[string][]model.ChatMessage)}
}

func (h *memoryHistory) Append(_ context.Context, sessionID string, msgs ...model.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.messages[sessionID] = append(h.messages[sessionID], msgs...)
	return nil
}

func (h *memoryHistory) Load(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.ChatMessage(nil), h.messages[sessionID]...), nil
}

func (h *memoryHistory) Clear(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, sessionID)
	return nil
}

type memoryAppeals struct {
	mu      sync.Mutex
	appeals []ethics.Appeal
	err     error
}

func (s *memoryAppeals) Save(_ context.Context, appeal ethics.Appeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.appeals = append(s.appeals, appeal)
	return nil
}
