package client

import (
	"context"
	"fmt"

	"github.com/ethicalbot/ethicalbot-go/internal/config"
	"go.uber.org/zap"
)

// CompletionRequest 单轮补全请求
type CompletionRequest struct {
	SystemPrompt    string
	UserMessage     string
	MaxOutputTokens int
}

// ModelClient 模型服务边界。返回空字符串表示调用成功但没有内容
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewModelClient 按配置创建模型客户端
func NewModelClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (ModelClient, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, logger)
	case "dashscope":
		return NewDashScopeClient(cfg.APIKey, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("不支持的模型服务: %s", cfg.Provider)
	}
}
