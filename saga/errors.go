package saga

import "errors"

// 预定义错误.
//
// 定义层面的误用（空步骤列表、重复步骤名等）在构建编排器时立刻
// 报错；业务层面的运行失败不是错误，通过最终上下文的 Status 区分.
var (
	// ErrNilDefinition Saga 定义为空.
	ErrNilDefinition = errors.New("saga: 定义为空")

	// ErrEmptySagaType Saga 类型名为空.
	ErrEmptySagaType = errors.New("saga: 类型名为空")

	// ErrNoSteps 没有定义步骤.
	ErrNoSteps = errors.New("saga: 没有定义步骤")

	// ErrEmptyStepName 步骤名称为空.
	ErrEmptyStepName = errors.New("saga: 步骤名称为空")

	// ErrDuplicateStep 步骤名称重复.
	ErrDuplicateStep = errors.New("saga: 步骤名称重复")

	// ErrNilAction 步骤正向操作为空.
	ErrNilAction = errors.New("saga: 步骤正向操作为空")

	// ErrInitContext 初始化上下文失败.
	ErrInitContext = errors.New("saga: 初始化上下文失败")

	// ErrNilContext 定义返回的上下文未嵌入基础 Context.
	ErrNilContext = errors.New("saga: 上下文为空")

	// ErrStepTimeout 步骤执行超时.
	ErrStepTimeout = errors.New("saga: 步骤执行超时")

	// ErrInvalidConfig 配置无效.
	ErrInvalidConfig = errors.New("saga: 配置无效")

	// ErrRunNotFound 运行记录不存在.
	ErrRunNotFound = errors.New("saga: 运行记录不存在")
)
