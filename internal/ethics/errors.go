package ethics

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	// ErrConfig 策略配置非法（未知的敏感度或透明度等级）
	ErrConfig = errors.New("invalid ethics configuration")
	// ErrValidation 申诉内容不完整
	ErrValidation = errors.New("appeal validation failed")
	// ErrLimitExceeded 超过单会话申诉上限
	ErrLimitExceeded = errors.New("appeal limit exceeded")
	// ErrUpstreamFailure 模型服务未返回可用内容
	ErrUpstreamFailure = errors.New("model service failure")

	ErrAppealsDisabled = errors.New("appeals are disabled")
	ErrNoActiveAppeal  = errors.New("no active appeal")
	ErrAppealInFlight  = errors.New("appeal submission in progress")
	ErrUnknownPath     = errors.New("unknown configuration path")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

// UserError 需要展示给用户的错误
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError 创建用户可见错误
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage 提取用户可见信息，非 UserError 时返回 fallback
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return fallback
}
