package saga

// 事件种类，封闭集合.
//
// 每种事件对应一个确定的负载结构，发布点只使用这里定义的组合.
const (
	EventStarted               = "started"
	EventStepCompleted         = "step_completed"
	EventStepFailed            = "step_failed"
	EventCompensationCompleted = "compensation_completed"
	EventCompensationFailed    = "compensation_failed"
	EventCompleted             = "completed"
	EventFailed                = "failed"
)

// EventType 拼接完整事件类型: saga.<sagaType>.<kind>.
func EventType(sagaType, kind string) string {
	return "saga." + sagaType + "." + kind
}

// StartedPayload saga.<type>.started 事件负载.
type StartedPayload struct {
	// Input 启动时的原始输入.
	Input any `json:"input,omitempty"`
}

// StepCompletedPayload saga.<type>.step_completed 事件负载.
type StepCompletedPayload struct {
	StepName   string `json:"step_name"`
	StepIndex  int    `json:"step_index"`
	ActionID   string `json:"action_id"`
	DurationMS int64  `json:"duration_ms"`
}

// StepFailedPayload saga.<type>.step_failed 事件负载.
type StepFailedPayload struct {
	StepName  string `json:"step_name"`
	StepIndex int    `json:"step_index"`
	Error     string `json:"error"`
	Attempts  int    `json:"attempts"`
}

// CompensationCompletedPayload saga.<type>.compensation_completed 事件负载.
type CompensationCompletedPayload struct {
	StepName  string `json:"step_name"`
	StepIndex int    `json:"step_index"`
	ActionID  string `json:"action_id"`
}

// CompensationFailedPayload saga.<type>.compensation_failed 事件负载.
type CompensationFailedPayload struct {
	StepName  string `json:"step_name"`
	StepIndex int    `json:"step_index"`
	Error     string `json:"error"`
}

// CompletedPayload saga.<type>.completed 事件负载.
type CompletedPayload struct {
	DurationMS int64 `json:"duration_ms"`
}

// FailedPayload saga.<type>.failed 事件负载.
type FailedPayload struct {
	// FailedStep 触发失败的步骤名称.
	FailedStep string `json:"failed_step"`

	// Compensated 补偿是否全部成功.
	Compensated bool `json:"compensated"`
}
