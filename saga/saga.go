// Package saga 提供 Saga 分布式事务编排.
//
// Saga 模式用于管理跨服务的分布式事务：按声明顺序执行一组可失败的
// 步骤，任一步骤不可恢复地失败时，按逆序执行已完成步骤的补偿操作，
// 保证最终一致性。整个运行过程产生带 correlation id 的生命周期事件
// 和补偿日志，外部观察者可以完整重建一次运行.
//
// 基本用法:
//
//	type OrderContext struct {
//	    *saga.Context
//	    OrderID       string
//	    ReservationID string
//	}
//
//	type CreateOrderSaga struct{}
//
//	func (s *CreateOrderSaga) SagaType() string { return "create-order" }
//
//	func (s *CreateOrderSaga) Steps() []saga.Step[*OrderContext] {
//	    return []saga.Step[*OrderContext]{
//	        saga.NewStep("reserve-inventory", reserve, release),
//	        saga.NewStep("charge-payment", charge, refund).WithTimeout(10*time.Second),
//	        saga.NewStep("send-notification", notify, nil).NotRetryable(),
//	    }
//	}
//
//	func (s *CreateOrderSaga) InitContext(input any, base *saga.Context) (*OrderContext, error) {
//	    req := input.(*CreateOrderRequest)
//	    return &OrderContext{Context: base, OrderID: req.OrderID}, nil
//	}
//
//	orch, err := saga.New[*OrderContext](&CreateOrderSaga{},
//	    saga.WithLogger(log),
//	    saga.WithSink(sink),
//	)
//	final, err := orch.Start(ctx, req, saga.WithInitiator(userID))
//	if err != nil {
//	    // 定义层面的误用，非业务失败
//	}
//	switch final.Status {
//	case saga.StatusCompleted:
//	case saga.StatusCompensated, saga.StatusFailed:
//	    // 业务失败通过状态区分，从 final.Errors 取错误明细
//	}
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tsukikage7/sagakit/eventsink"
	"github.com/Tsukikage7/sagakit/logger"
)

// Orchestrator Saga 编排器.
//
// 一个编排器对应一个 Saga 定义，可并发发起多次运行；
// 每次运行独占自己的上下文，运行之间不共享可变状态.
type Orchestrator[C ContextCarrier] struct {
	def      Definition[C]
	sagaType string
	steps    []Step[C]
	opts     *options
}

// New 创建编排器.
//
// 构建时校验定义：空步骤列表、空步骤名、重复步骤名、正向操作为 nil
// 都是程序错误，立刻返回.
func New[C ContextCarrier](def Definition[C], opts ...Option) (*Orchestrator[C], error) {
	if def == nil {
		return nil, ErrNilDefinition
	}

	sagaType := def.SagaType()
	if sagaType == "" {
		return nil, ErrEmptySagaType
	}

	steps := def.Steps()
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("%w: 索引 %d", ErrEmptyStepName, i)
		}
		if _, ok := seen[step.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, step.Name)
		}
		seen[step.Name] = struct{}{}

		if step.Action == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilAction, step.Name)
		}
	}

	// 定义构建完成后步骤不可变
	copied := make([]Step[C], len(steps))
	copy(copied, steps)

	return &Orchestrator[C]{
		def:      def,
		sagaType: sagaType,
		steps:    copied,
		opts:     applyOptions(opts),
	}, nil
}

// MustNew 创建编排器，失败时 panic.
func MustNew[C ContextCarrier](def Definition[C], opts ...Option) *Orchestrator[C] {
	o, err := New(def, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

// SagaType 返回 Saga 类型名.
func (o *Orchestrator[C]) SagaType() string {
	return o.sagaType
}

// StepCount 返回步骤数量.
func (o *Orchestrator[C]) StepCount() int {
	return len(o.steps)
}

// Start 发起一次运行，运行到达终态后返回最终上下文.
//
// 业务层面的失败（failed/compensated）是正常返回，通过最终上下文的
// Status 区分；只有定义层面的误用（上下文初始化失败等）返回错误.
func (o *Orchestrator[C]) Start(ctx context.Context, input any, opts ...StartOption) (C, error) {
	var zero C

	so := &startOptions{}
	for _, opt := range opts {
		opt(so)
	}

	base := newContext(o.sagaType)
	base.UserID = so.userID

	sc, err := o.def.InitContext(input, base)
	if err != nil {
		return zero, errors.Join(ErrInitContext, err)
	}
	run := sc.SagaContext()
	if run == nil {
		return zero, ErrNilContext
	}

	// 注入运行标识，步骤内部的日志自动携带
	ctx = logger.ContextWithSagaID(ctx, run.SagaID)
	ctx = logger.ContextWithCorrelationID(ctx, run.CorrelationID)

	ctx, runSpan := o.opts.tracer.startRunSpan(ctx, run)

	run.Status = StatusRunning
	o.saveRun(ctx, run)
	o.publish(ctx, run, EventStarted, StartedPayload{Input: input})

	o.opts.logger.WithContext(ctx).With(
		logger.String("saga_type", o.sagaType),
		logger.Int("steps", len(o.steps)),
	).Info("[Saga] 运行开始")

	// 正向执行
	var (
		failedIndex = -1
		failedName  string
		failedErr   error
	)

	for i := range o.steps {
		step := o.steps[i]
		run.CurrentStep = i
		run.CurrentStepName = step.Name

		out := o.runStepWithRetry(ctx, step, sc, i)
		o.opts.metrics.RecordStep(o.sagaType, step.Name, out.err == nil, out.duration)

		if out.err != nil {
			run.recordError(step.Name, out.err, step.Retryable)
			o.publish(ctx, run, EventStepFailed, StepFailedPayload{
				StepName:  step.Name,
				StepIndex: i,
				Error:     out.err.Error(),
				Attempts:  out.attempts,
			})

			o.opts.logger.WithContext(ctx).With(
				logger.String("saga_type", o.sagaType),
				logger.String("step", step.Name),
				logger.Int("attempts", out.attempts),
				logger.Err(out.err),
			).Error("[Saga] 步骤执行失败")

			failedIndex = i
			failedName = step.Name
			failedErr = out.err
			break
		}

		run.CompensationLog = append(run.CompensationLog, CompensationLogEntry{
			StepName:  step.Name,
			StepIndex: i,
			Forward: ActionRecord{
				ActionID:    out.actionID,
				CompletedAt: time.Now(),
				Result:      out.result,
			},
			Status: CompensationStatusForwardComplete,
		})

		o.publish(ctx, run, EventStepCompleted, StepCompletedPayload{
			StepName:   step.Name,
			StepIndex:  i,
			ActionID:   out.actionID,
			DurationMS: out.duration.Milliseconds(),
		})

		o.opts.logger.WithContext(ctx).With(
			logger.String("saga_type", o.sagaType),
			logger.String("step", step.Name),
			logger.Duration("duration", out.duration),
		).Debug("[Saga] 步骤执行完成")
	}

	// 全部成功
	if failedIndex < 0 {
		now := time.Now()
		run.Status = StatusCompleted
		run.CompletedAt = &now
		o.saveRun(ctx, run)

		duration := now.Sub(run.StartedAt)
		o.publish(ctx, run, EventCompleted, CompletedPayload{DurationMS: duration.Milliseconds()})
		o.opts.metrics.RecordRun(o.sagaType, run.Status, duration)
		o.opts.tracer.setStatus(runSpan, run.Status)
		o.opts.tracer.end(runSpan, nil)

		o.opts.logger.WithContext(ctx).With(
			logger.String("saga_type", o.sagaType),
			logger.Duration("duration", duration),
		).Info("[Saga] 运行成功")

		if h, ok := any(o.def).(CompletedHook[C]); ok {
			h.OnCompleted(ctx, sc)
		}

		return sc, nil
	}

	// 逆序补偿
	allCompensated := o.compensate(ctx, sc, failedIndex)

	now := time.Now()
	run.CompletedAt = &now
	if allCompensated && len(run.CompensationLog) > 0 {
		run.Status = StatusCompensated
	} else {
		run.Status = StatusFailed
	}
	o.saveRun(ctx, run)

	o.publish(ctx, run, EventFailed, FailedPayload{
		FailedStep:  failedName,
		Compensated: run.Status == StatusCompensated,
	})
	o.opts.metrics.RecordRun(o.sagaType, run.Status, now.Sub(run.StartedAt))
	o.opts.tracer.setStatus(runSpan, run.Status)
	o.opts.tracer.end(runSpan, failedErr)

	o.opts.logger.WithContext(ctx).With(
		logger.String("saga_type", o.sagaType),
		logger.String("failed_step", failedName),
		logger.String("status", string(run.Status)),
	).Warn("[Saga] 运行失败")

	switch run.Status {
	case StatusCompensated:
		if h, ok := any(o.def).(CompensatedHook[C]); ok {
			h.OnCompensated(ctx, sc)
		}
	case StatusFailed:
		if h, ok := any(o.def).(FailedHook[C]); ok {
			h.OnFailed(ctx, sc)
		}
	}

	return sc, nil
}

// stepOutcome 一次步骤执行（含重试）的结果.
type stepOutcome struct {
	result   any
	actionID string
	attempts int
	duration time.Duration
	err      error
}

// runStepWithRetry 带重试执行步骤的正向操作.
//
// 最多尝试 max(1, maxRetries+1) 次；不可重试的步骤只尝试一次。
// 每次尝试与超时竞争，先到者胜。重试前等待 min(base * 2^n, cap)，
// n 为已失败的尝试序号（从 0 开始）。记录的错误是最后一次尝试的错误.
func (o *Orchestrator[C]) runStepWithRetry(ctx context.Context, step Step[C], sc C, index int) stepOutcome {
	attempts := 1
	if step.Retryable {
		maxRetries := step.MaxRetries
		if maxRetries < 0 {
			maxRetries = o.opts.defaultMaxRetries
		}
		if maxRetries > 0 {
			attempts = maxRetries + 1
		}
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = o.opts.defaultTimeout
	}

	start := time.Now()
	out := stepOutcome{}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := o.backoffDelay(attempt - 1)
			select {
			case <-ctx.Done():
				out.err = ctx.Err()
				out.duration = time.Since(start)
				return out
			case <-time.After(delay):
			}

			o.opts.metrics.RecordRetry(o.sagaType, step.Name)
			o.opts.logger.WithContext(ctx).With(
				logger.String("step", step.Name),
				logger.Int("attempt", attempt+1),
				logger.Duration("delay", delay),
			).Debug("[Saga] 重试步骤")
		}

		actionID := uuid.NewString()
		attemptCtx, span := o.opts.tracer.startStepSpan(ctx, step.Name, index, attempt)
		result, err := o.runAction(attemptCtx, step.Action, sc, timeout)
		o.opts.tracer.end(span, err)

		out.attempts = attempt + 1
		if err == nil {
			out.result = result
			out.actionID = actionID
			out.err = nil
			out.duration = time.Since(start)
			return out
		}
		out.err = err
	}

	out.duration = time.Since(start)
	return out
}

// runAction 执行单次操作，与超时竞争.
//
// 超时判负后不强行终止在途操作，迟到的结果写入带缓冲的通道后被丢弃；
// 操作实现自身需要幂等或响应 ctx 取消.
func (o *Orchestrator[C]) runAction(ctx context.Context, action ActionFunc[C], sc C, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return action(ctx, sc)
	}

	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := action(actionCtx, sc)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-actionCtx.Done():
		return nil, errors.Join(ErrStepTimeout, actionCtx.Err())
	}
}

// backoffDelay 第 attempt 次失败后的退避时间（attempt 从 0 开始）.
func (o *Orchestrator[C]) backoffDelay(attempt int) time.Duration {
	if attempt > 30 {
		return o.opts.backoffCap
	}
	delay := o.opts.backoffBase << uint(attempt)
	if delay <= 0 || delay > o.opts.backoffCap {
		return o.opts.backoffCap
	}
	return delay
}

// compensate 从 failedIndex-1 逆序走到 0，补偿所有正向完成的步骤.
//
// 补偿不重试，每个条目恰好尝试一次；单个补偿失败不中断对更早步骤
// 的清理。返回是否全部补偿成功.
func (o *Orchestrator[C]) compensate(ctx context.Context, sc C, failedIndex int) bool {
	run := sc.SagaContext()
	run.Status = StatusCompensating
	o.saveRun(ctx, run)

	o.opts.logger.WithContext(ctx).With(
		logger.String("saga_type", o.sagaType),
		logger.Int("completed_steps", len(run.CompensationLog)),
	).Info("[Saga] 开始执行补偿")

	ok := true

	for i := failedIndex - 1; i >= 0; i-- {
		entry := run.logEntry(i)
		if entry == nil || entry.Status != CompensationStatusForwardComplete {
			continue
		}
		entry.Status = CompensationStatusRequired

		step := o.steps[i]

		// 无补偿操作的步骤直接标记完成
		if step.Compensation == nil {
			entry.Status = CompensationStatusCompensated
			continue
		}

		timeout := step.Timeout
		if timeout <= 0 {
			timeout = o.opts.defaultTimeout
		}

		actionID := uuid.NewString()
		compCtx, span := o.opts.tracer.startCompensationSpan(ctx, step.Name, i)
		result, err := o.runAction(compCtx, step.Compensation, sc, timeout)
		o.opts.tracer.end(span, err)
		o.opts.metrics.RecordCompensation(o.sagaType, step.Name, err == nil)

		if err != nil {
			entry.Status = CompensationStatusFailed
			run.recordError(step.Name, err, false)
			o.publish(ctx, run, EventCompensationFailed, CompensationFailedPayload{
				StepName:  step.Name,
				StepIndex: i,
				Error:     err.Error(),
			})

			o.opts.logger.WithContext(ctx).With(
				logger.String("saga_type", o.sagaType),
				logger.String("step", step.Name),
				logger.Err(err),
			).Error("[Saga] 补偿执行失败")

			ok = false
			continue
		}

		entry.Compensation = &ActionRecord{
			ActionID:    actionID,
			CompletedAt: time.Now(),
			Result:      result,
		}
		entry.Status = CompensationStatusCompensated

		o.publish(ctx, run, EventCompensationCompleted, CompensationCompletedPayload{
			StepName:  step.Name,
			StepIndex: i,
			ActionID:  actionID,
		})

		o.opts.logger.WithContext(ctx).With(
			logger.String("saga_type", o.sagaType),
			logger.String("step", step.Name),
		).Debug("[Saga] 步骤已补偿")
	}

	return ok
}

// publish 发布生命周期事件.
//
// 发布相对状态转换同步执行，但失败不升级：记录日志和指标后继续.
func (o *Orchestrator[C]) publish(ctx context.Context, run *Context, kind string, payload any) {
	if o.opts.sink == nil {
		return
	}

	evt := &eventsink.Event{
		Type:          EventType(run.SagaType, kind),
		Subject:       run.SagaID,
		CorrelationID: run.CorrelationID,
		UserID:        run.UserID,
		Payload:       payload,
		Timestamp:     time.Now(),
	}

	if err := o.opts.sink.Publish(ctx, evt); err != nil {
		o.opts.metrics.RecordPublishError(o.sagaType)
		o.opts.logger.WithContext(ctx).With(
			logger.String("event", evt.Type),
			logger.Err(err),
		).Warn("[Saga] 事件发布失败")
	}
}

// saveRun 保存运行记录快照，失败只记录日志.
func (o *Orchestrator[C]) saveRun(ctx context.Context, run *Context) {
	if err := o.opts.store.Save(ctx, run); err != nil {
		o.opts.logger.WithContext(ctx).With(
			logger.String("saga_type", o.sagaType),
			logger.String("status", string(run.Status)),
			logger.Err(err),
		).Warn("[Saga] 保存运行记录失败")
	}
}
