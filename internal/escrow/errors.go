package escrow

import (
	"errors"
	"fmt"
)

// 状态机错误分类，调用方通过 errors.Is 区分失败原因
// 除 ErrTransferFailed 外均不可原样重试
var (
	ErrEscrowNotFound        = errors.New("托管记录不存在")
	ErrMilestoneIndexInvalid = errors.New("里程碑序号无效")
	ErrUnauthorized          = errors.New("调用者没有操作权限")
	ErrAlreadyFunded         = errors.New("托管已经注资")
	ErrNotFunded             = errors.New("托管尚未注资")
	ErrAlreadyResolved       = errors.New("托管已经终结")
	ErrMilestoneCompleted    = errors.New("里程碑已经完成")
	ErrMilestonesIncomplete  = errors.New("仍有里程碑未完成")
	ErrInvalidState          = errors.New("托管状态不允许该操作")
	ErrTransferFailed        = errors.New("资金转移失败")
)

// ValidationError 创建参数校验错误，调用方需要修正输入后重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("参数校验失败: %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
