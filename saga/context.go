package saga

import (
	"time"

	"github.com/google/uuid"
)

// Status Saga 运行状态.
type Status string

const (
	// StatusPending 待执行.
	StatusPending Status = "pending"

	// StatusRunning 正向执行中.
	StatusRunning Status = "running"

	// StatusCompleted 全部步骤执行成功.
	StatusCompleted Status = "completed"

	// StatusCompensating 补偿执行中.
	StatusCompensating Status = "compensating"

	// StatusCompensated 步骤失败且所有补偿成功.
	StatusCompensated Status = "compensated"

	// StatusFailed 步骤失败且存在补偿失败，或无需补偿.
	StatusFailed Status = "failed"
)

// IsTerminal 是否为终态.
//
// 终态不再发生状态转换，重新执行需要新的 Context.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompensated, StatusFailed:
		return true
	default:
		return false
	}
}

// CompensationStatus 补偿日志条目状态.
type CompensationStatus string

const (
	// CompensationStatusForwardComplete 正向操作已完成，尚未要求补偿.
	CompensationStatusForwardComplete CompensationStatus = "forward_complete"

	// CompensationStatusRequired 已进入补偿流程.
	CompensationStatusRequired CompensationStatus = "compensation_required"

	// CompensationStatusCompensated 补偿成功.
	CompensationStatusCompensated CompensationStatus = "compensated"

	// CompensationStatusFailed 补偿失败.
	CompensationStatusFailed CompensationStatus = "compensation_failed"
)

// ActionRecord 一次操作的执行记录.
//
// ActionID 每次尝试重新生成，用于在日志和事件中区分同一步骤的多次重试.
type ActionRecord struct {
	// ActionID 操作标识.
	ActionID string `json:"action_id"`

	// CompletedAt 完成时间.
	CompletedAt time.Time `json:"completed_at"`

	// Result 操作结果负载.
	Result any `json:"result,omitempty"`
}

// CompensationLogEntry 补偿日志条目.
//
// 每个正向操作完成的步骤追加一条，按正向执行顺序排列.
// 日志在一次运行内只追加和更新，是"做了什么、撤销了什么"的审计证据.
type CompensationLogEntry struct {
	// StepName 步骤名称.
	StepName string `json:"step_name"`

	// StepIndex 步骤索引.
	StepIndex int `json:"step_index"`

	// Forward 正向操作记录.
	Forward ActionRecord `json:"forward"`

	// Compensation 补偿操作记录（补偿成功后填充）.
	Compensation *ActionRecord `json:"compensation,omitempty"`

	// Status 条目状态.
	Status CompensationStatus `json:"status"`
}

// ErrorRecord 运行过程中记录的错误.
type ErrorRecord struct {
	// StepName 出错的步骤名称.
	StepName string `json:"step_name"`

	// Message 错误信息.
	Message string `json:"message"`

	// Timestamp 记录时间.
	Timestamp time.Time `json:"timestamp"`

	// Retryable 该步骤是否可重试.
	Retryable bool `json:"retryable"`
}

// Context Saga 运行上下文.
//
// 每次运行一个实例，由编排器在运行期间独占修改；运行返回后归调用方
// 只读访问。具体 Saga 通过嵌入 *Context 扩展业务字段，编排器不感知
// 扩展部分.
type Context struct {
	// SagaID 本次运行的全局唯一标识.
	SagaID string `json:"saga_id"`

	// SagaType Saga 类型名.
	SagaType string `json:"saga_type"`

	// Status 当前状态.
	Status Status `json:"status"`

	// CurrentStep 当前步骤索引.
	CurrentStep int `json:"current_step"`

	// CurrentStepName 当前步骤名称.
	CurrentStepName string `json:"current_step_name"`

	// StartedAt 开始时间.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt 到达终态的时间.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CorrelationID 关联标识，贯穿本次运行产生的所有事件和副作用记录.
	CorrelationID string `json:"correlation_id"`

	// UserID 发起用户标识（可选）.
	UserID string `json:"user_id,omitempty"`

	// Errors 运行中记录的错误，按时间顺序.
	Errors []ErrorRecord `json:"errors,omitempty"`

	// CompensationLog 补偿日志.
	CompensationLog []CompensationLogEntry `json:"compensation_log,omitempty"`
}

// SagaContext 返回基础运行上下文，满足 ContextCarrier.
func (c *Context) SagaContext() *Context {
	return c
}

// logEntry 按步骤索引查找补偿日志条目.
//
// 日志是小的有序列表，线性扫描即可.
func (c *Context) logEntry(stepIndex int) *CompensationLogEntry {
	for i := range c.CompensationLog {
		if c.CompensationLog[i].StepIndex == stepIndex {
			return &c.CompensationLog[i]
		}
	}
	return nil
}

// recordError 追加一条错误记录.
func (c *Context) recordError(stepName string, err error, retryable bool) {
	c.Errors = append(c.Errors, ErrorRecord{
		StepName:  stepName,
		Message:   err.Error(),
		Timestamp: time.Now(),
		Retryable: retryable,
	})
}

// ContextCarrier 由具体 Saga 上下文实现.
//
// 通过组合嵌入 *Context 即可满足:
//
//	type OrderContext struct {
//	    *saga.Context
//	    OrderID       string
//	    ReservationID string
//	}
type ContextCarrier interface {
	SagaContext() *Context
}

// newContext 创建新的运行上下文.
func newContext(sagaType string) *Context {
	return &Context{
		SagaID:        uuid.NewString(),
		SagaType:      sagaType,
		Status:        StatusPending,
		CorrelationID: uuid.NewString(),
		StartedAt:     time.Now(),
	}
}
