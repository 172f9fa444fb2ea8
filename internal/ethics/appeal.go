package ethics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AppealCategory 申诉类型
type AppealCategory string

const (
	AppealFactual       AppealCategory = "factual"
	AppealBias          AppealCategory = "bias"
	AppealClarification AppealCategory = "clarification"
)

// AppealCategoryInfo 申诉类型说明（供展示层使用）
type AppealCategoryInfo struct {
	ID          AppealCategory `json:"id"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
}

var appealCategories = []AppealCategoryInfo{
	{AppealFactual, "Factual Dispute", "The information provided appears to be incorrect or outdated"},
	{AppealBias, "Bias Concern", "The response seems biased or unfair in some way"},
	{AppealClarification, "Need Clarification", "The response is unclear or needs more detailed explanation"},
}

// AppealCategories 返回全部申诉类型
func AppealCategories() []AppealCategoryInfo {
	return append([]AppealCategoryInfo(nil), appealCategories...)
}

// ParseAppealCategory 解析申诉类型
func ParseAppealCategory(s string) (AppealCategory, error) {
	for _, info := range appealCategories {
		if string(info.ID) == s {
			return info.ID, nil
		}
	}
	return "", NewUserError(fmt.Sprintf("Unknown appeal type %q.", s), ErrValidation)
}

// AppealStatus 申诉状态
type AppealStatus string

const (
	AppealDraft      AppealStatus = "draft"
	AppealSubmitting AppealStatus = "submitting"
	AppealSubmitted  AppealStatus = "submitted"
)

// Appeal 用户对某条助手回复的申诉
type Appeal struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"sessionId"`
	TargetMessageID string         `json:"targetMessageId"`
	Category        AppealCategory `json:"category,omitempty"`
	Detail          string         `json:"detail"`
	Status          AppealStatus   `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
}

// AppealSubmitter 外部申诉接收方（持久化、人工审核队列等）
type AppealSubmitter interface {
	SubmitAppeal(ctx context.Context, appeal Appeal) error
}

// AppealWorkflow 单会话申诉状态机：draft -> submitting -> submitted
type AppealWorkflow struct {
	sessionID string
	enabled   bool
	limit     int
	submitter AppealSubmitter

	mu        sync.Mutex
	active    *Appeal
	submitted int
	now       func() time.Time
}

// NewAppealWorkflow 创建申诉流程，submitter 可以为 nil
func NewAppealWorkflow(sessionID string, policy Policy, submitter AppealSubmitter) *AppealWorkflow {
	return &AppealWorkflow{
		sessionID: sessionID,
		enabled:   policy.Behavior.AppealEnabled,
		limit:     policy.Appeals.MaxAppealsPerSession,
		submitter: submitter,
		now:       time.Now,
	}
}

// Open 针对某条消息打开申诉草稿，已有草稿会被替换
func (w *AppealWorkflow) Open(targetMessageID string) (Appeal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled {
		return Appeal{}, NewUserError("Appeals are currently disabled.", ErrAppealsDisabled)
	}
	if w.active != nil && w.active.Status == AppealSubmitting {
		return Appeal{}, ErrAppealInFlight
	}

	w.active = &Appeal{
		ID:              uuid.New().String(),
		SessionID:       w.sessionID,
		TargetMessageID: targetMessageID,
		Status:          AppealDraft,
		CreatedAt:       w.now(),
	}
	return *w.active, nil
}

// SelectCategory 设置申诉类型
func (w *AppealWorkflow) SelectCategory(category AppealCategory) error {
	if _, err := ParseAppealCategory(string(category)); err != nil {
		return err
	}
	return w.mutate(func(a *Appeal) { a.Category = category })
}

// SetDetail 设置申诉说明
func (w *AppealWorkflow) SetDetail(text string) error {
	return w.mutate(func(a *Appeal) { a.Detail = text })
}

func (w *AppealWorkflow) mutate(fn func(a *Appeal)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return ErrNoActiveAppeal
	}
	if w.active.Status != AppealDraft {
		return ErrAppealInFlight
	}
	fn(w.active)
	return nil
}

// Submit 校验并提交申诉。校验失败或超出上限时保持 draft 状态
func (w *AppealWorkflow) Submit(ctx context.Context) (Appeal, error) {
	w.mu.Lock()
	if w.active == nil {
		w.mu.Unlock()
		return Appeal{}, ErrNoActiveAppeal
	}
	if w.active.Status != AppealDraft {
		w.mu.Unlock()
		return Appeal{}, ErrAppealInFlight
	}
	if w.active.Category == "" || strings.TrimSpace(w.active.Detail) == "" {
		w.mu.Unlock()
		return Appeal{}, NewUserError("Please select an appeal type and provide details.", ErrValidation)
	}
	if w.submitted >= w.limit {
		w.mu.Unlock()
		return Appeal{}, NewUserError(
			fmt.Sprintf("You have reached the limit of %d appeals for this session.", w.limit),
			ErrLimitExceeded)
	}

	w.active.Status = AppealSubmitting
	pending := w.active
	// 接收方拿到的是最终状态的记录
	submittedAt := w.now()
	snapshot := *pending
	snapshot.Status = AppealSubmitted
	snapshot.SubmittedAt = &submittedAt
	w.mu.Unlock()

	var err error
	if w.submitter != nil {
		err = w.submitter.SubmitAppeal(ctx, snapshot)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		if w.active == pending {
			pending.Status = AppealDraft
		}
		return Appeal{}, fmt.Errorf("提交申诉失败: %w", err)
	}

	w.submitted++
	// 提交期间被取消或替换的草稿不再清理
	if w.active == pending {
		w.active = nil
	}
	return snapshot, nil
}

// Cancel 丢弃当前草稿
func (w *AppealWorkflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = nil
}

// Active 当前草稿
func (w *AppealWorkflow) Active() (Appeal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return Appeal{}, false
	}
	return *w.active, true
}

// Submitted 本会话已提交的申诉数
func (w *AppealWorkflow) Submitted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitted
}

// Remaining 剩余可提交次数
func (w *AppealWorkflow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r := w.limit - w.submitted; r > 0 {
		return r
	}
	return 0
}
