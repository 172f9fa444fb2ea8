package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/model"
	"github.com/redis/go-redis/v9"
)

// HistoryStore 会话消息日志的外部镜像
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, msgs ...model.ChatMessage) error
	Load(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisHistoryStore 基于 Redis List 的会话日志
type RedisHistoryStore struct {
	client   *redis.Client
	policies *PolicyStore
}

// NewRedisHistoryStore 创建 Redis 会话日志，保留时间取 monitoring.retainLogsFor
func NewRedisHistoryStore(client *redis.Client, policies *PolicyStore) *RedisHistoryStore {
	return &RedisHistoryStore{
		client:   client,
		policies: policies,
	}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat_history:%s", sessionID)
}

// Append 追加消息
func (s *RedisHistoryStore) Append(ctx context.Context, sessionID string, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("序列化消息失败: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(sessionID)
	retention := retentionPeriod(s.policies)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if retention > 0 {
			pipe.Expire(ctx, key, retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存会话日志失败: %w", err)
	}
	return nil
}

// Load 读取会话日志
func (s *RedisHistoryStore) Load(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取会话日志失败: %w", err)
	}

	msgs := make([]model.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("解析会话日志失败: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear 删除会话日志
func (s *RedisHistoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("删除会话日志失败: %w", err)
	}
	return nil
}

// retentionPeriod 日志保留时长，0 表示不过期
func retentionPeriod(policies *PolicyStore) time.Duration {
	if policies == nil {
		return 0
	}
	days := policies.Snapshot().Monitoring.RetainLogsFor
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}
