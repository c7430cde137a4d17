package saga

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sagaTracer 编排器追踪器.
//
// 使用全局 OpenTelemetry TracerProvider。所有方法对 nil 接收者安全，
// 未启用追踪时返回原 context 和 nil span.
type sagaTracer struct {
	tracer trace.Tracer
}

// newSagaTracer 创建编排器追踪器.
func newSagaTracer(serviceName string) *sagaTracer {
	return &sagaTracer{
		tracer: otel.Tracer(serviceName),
	}
}

// startRunSpan 开始运行 span.
func (t *sagaTracer) startRunSpan(ctx context.Context, run *Context) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "saga.run",
		trace.WithAttributes(
			attribute.String("saga.type", run.SagaType),
			attribute.String("saga.id", run.SagaID),
			attribute.String("saga.correlation_id", run.CorrelationID),
		),
	)
}

// startStepSpan 开始步骤尝试 span.
func (t *sagaTracer) startStepSpan(ctx context.Context, stepName string, index, attempt int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "saga.step",
		trace.WithAttributes(
			attribute.String("saga.step.name", stepName),
			attribute.Int("saga.step.index", index),
			attribute.Int("saga.step.attempt", attempt),
		),
	)
}

// startCompensationSpan 开始补偿 span.
func (t *sagaTracer) startCompensationSpan(ctx context.Context, stepName string, index int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "saga.compensation",
		trace.WithAttributes(
			attribute.String("saga.step.name", stepName),
			attribute.Int("saga.step.index", index),
		),
	)
}

// end 结束 span，err 非空时记录错误状态.
func (t *sagaTracer) end(span trace.Span, err error) {
	if t == nil || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// setStatus 在运行 span 上记录终态.
func (t *sagaTracer) setStatus(span trace.Span, status Status) {
	if t == nil || span == nil {
		return
	}
	span.SetAttributes(attribute.String("saga.status", string(status)))
}
