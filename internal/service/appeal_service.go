package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AppealStore 申诉持久化
type AppealStore interface {
	Save(ctx context.Context, appeal ethics.Appeal) error
}

// RedisAppealStore 申诉写入 Redis：appeal:<id> 保存内容，appeals:queue 供人工审核消费
type RedisAppealStore struct {
	client   *redis.Client
	policies *PolicyStore
}

// NewRedisAppealStore 创建 Redis 申诉存储
func NewRedisAppealStore(client *redis.Client, policies *PolicyStore) *RedisAppealStore {
	return &RedisAppealStore{
		client:   client,
		policies: policies,
	}
}

const appealQueueKey = "appeals:queue"

// Save 保存申诉
func (s *RedisAppealStore) Save(ctx context.Context, appeal ethics.Appeal) error {
	data, err := json.Marshal(appeal)
	if err != nil {
		return fmt.Errorf("序列化申诉失败: %w", err)
	}

	retention := retentionPeriod(s.policies)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, "appeal:"+appeal.ID, data, retention)
		pipe.RPush(ctx, appealQueueKey, appeal.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存申诉失败: %w", err)
	}
	return nil
}

// AppealService 申诉接收方：持久化并按策略记录日志
type AppealService struct {
	store    AppealStore
	policies *PolicyStore
	logger   *zap.Logger
}

// NewAppealService 创建申诉服务，store 可以为 nil（仅记录日志）
func NewAppealService(store AppealStore, policies *PolicyStore, logger *zap.Logger) *AppealService {
	return &AppealService{
		store:    store,
		policies: policies,
		logger:   logger,
	}
}

// SubmitAppeal 实现 ethics.AppealSubmitter
func (s *AppealService) SubmitAppeal(ctx context.Context, appeal ethics.Appeal) error {
	if s.store != nil {
		if err := s.store.Save(ctx, appeal); err != nil {
			s.logger.Error("申诉保存失败",
				zap.String("appealId", appeal.ID),
				zap.Error(err))
			return err
		}
	}

	if s.policies.Snapshot().Monitoring.LogAppeals {
		s.logger.Info("收到申诉",
			zap.String("appealId", appeal.ID),
			zap.String("sessionId", appeal.SessionID),
			zap.String("messageId", appeal.TargetMessageID),
			zap.String("category", string(appeal.Category)))
	}
	return nil
}
