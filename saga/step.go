package saga

import (
	"context"
	"time"
)

// ActionFunc 步骤操作函数.
//
// 正向操作和补偿操作共用同一签名：接收执行上下文和 Saga 上下文，
// 返回不透明的结果负载。返回错误表示该次尝试失败.
//
// 操作实现应当幂等或使用自身的取消机制：超时竞争判负后编排器不会
// 强行终止在途操作，迟到的完成结果会被丢弃.
type ActionFunc[C ContextCarrier] func(ctx context.Context, sc C) (any, error)

// Step Saga 步骤.
//
// 步骤在定义构建完成后不可变，声明顺序同时决定正向执行顺序和
// （反向的）补偿顺序.
type Step[C ContextCarrier] struct {
	// Name 步骤名称，在一个 Saga 定义内唯一.
	Name string

	// Action 正向操作.
	Action ActionFunc[C]

	// Compensation 补偿操作（可选，nil 表示该步骤无需补偿）.
	Compensation ActionFunc[C]

	// Timeout 单次尝试的超时时间，0 表示使用编排器默认值.
	Timeout time.Duration

	// Retryable 是否可重试，为 false 时无论 MaxRetries 如何都只尝试一次.
	Retryable bool

	// MaxRetries 最大重试次数，-1 表示使用编排器默认值.
	MaxRetries int
}

// NewStep 创建步骤.
//
// 默认可重试，重试次数和超时跟随编排器默认值:
//
//	step := saga.NewStep("reserve-inventory", reserve, release).
//	    WithTimeout(5 * time.Second).
//	    WithMaxRetries(2)
func NewStep[C ContextCarrier](name string, action, compensation ActionFunc[C]) Step[C] {
	return Step[C]{
		Name:         name,
		Action:       action,
		Compensation: compensation,
		Retryable:    true,
		MaxRetries:   -1,
	}
}

// WithTimeout 设置单次尝试的超时时间.
func (s Step[C]) WithTimeout(timeout time.Duration) Step[C] {
	s.Timeout = timeout
	return s
}

// WithMaxRetries 设置最大重试次数.
func (s Step[C]) WithMaxRetries(maxRetries int) Step[C] {
	s.MaxRetries = maxRetries
	return s
}

// NotRetryable 标记步骤不可重试.
func (s Step[C]) NotRetryable() Step[C] {
	s.Retryable = false
	return s
}
