package service

import (
	"sync"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"go.uber.org/zap"
)

// PolicyStore 持有当前策略快照。更新时复制后整体替换，已取得的快照不受影响
type PolicyStore struct {
	mu      sync.RWMutex
	policy  ethics.Policy
	catalog *ethics.Catalog
	path    string
	logger  *zap.Logger
}

// NewPolicyStore 创建策略存储，path 非空时更新会写回文件
func NewPolicyStore(policy ethics.Policy, path string, logger *zap.Logger) *PolicyStore {
	return &PolicyStore{
		policy:  policy.Clone(),
		catalog: ethics.NewCatalog(policy),
		path:    path,
		logger:  logger,
	}
}

// Snapshot 当前策略副本
func (s *PolicyStore) Snapshot() ethics.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy.Clone()
}

// Catalog 当前策略对应的只读目录
func (s *PolicyStore) Catalog() *ethics.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Get 按路径读取
func (s *PolicyStore) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy.Get(path)
}

// Validate 校验当前策略
func (s *PolicyStore) Validate() ethics.ValidationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy.Validate()
}

// Update 按路径更新并返回更新后的校验结果
func (s *PolicyStore) Update(path string, value any) (ethics.ValidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.policy.Clone()
	if err := next.Update(path, value); err != nil {
		return ethics.ValidationReport{}, err
	}
	if err := s.persist(next); err != nil {
		return ethics.ValidationReport{}, err
	}

	s.swap(next)
	s.logger.Info("策略已更新", zap.String("path", path), zap.Any("value", value))

	return next.Validate(), nil
}

// Reset 恢复默认策略
func (s *PolicyStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := ethics.DefaultPolicy()
	if err := s.persist(next); err != nil {
		return err
	}
	s.swap(next)
	s.logger.Info("策略已恢复默认值")
	return nil
}

func (s *PolicyStore) swap(next ethics.Policy) {
	s.policy = next
	s.catalog = ethics.NewCatalog(next)
}

func (s *PolicyStore) persist(p ethics.Policy) error {
	if s.path == "" {
		return nil
	}
	return ethics.SavePolicy(s.path, p)
}
