package saga

import "context"

// Definition Saga 定义契约，由每个具体 Saga 实现.
//
// 定义只负责提供步骤列表和上下文初始化逻辑，编排核心不关心步骤
// 内部做什么.
type Definition[C ContextCarrier] interface {
	// SagaType 返回 Saga 类型名，用于事件命名空间.
	SagaType() string

	// Steps 返回有序步骤列表.
	Steps() []Step[C]

	// InitContext 从任意输入构建初始上下文.
	//
	// base 携带新生成的 saga id 和 correlation id，实现方将其嵌入
	// 自己的上下文类型并填充业务字段.
	InitContext(input any, base *Context) (C, error)
}

// 终态钩子接口，定义按需实现，编排器通过类型断言发现.
// 钩子在对应的终态转换和终态事件之后调用，拿到最终上下文.

// CompletedHook 运行成功钩子.
type CompletedHook[C ContextCarrier] interface {
	OnCompleted(ctx context.Context, sc C)
}

// FailedHook 运行失败钩子，终态为 failed 时调用.
type FailedHook[C ContextCarrier] interface {
	OnFailed(ctx context.Context, sc C)
}

// CompensatedHook 补偿完成钩子，终态为 compensated 时调用.
type CompensatedHook[C ContextCarrier] interface {
	OnCompensated(ctx context.Context, sc C)
}
