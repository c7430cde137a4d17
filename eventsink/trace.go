package eventsink

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// sinkTracer 事件通道追踪器.
//
// 使用全局 OpenTelemetry TracerProvider，与 HTTP/gRPC 追踪统一管理.
type sinkTracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// newSinkTracer 创建事件通道追踪器.
func newSinkTracer(serviceName string) *sinkTracer {
	return &sinkTracer{
		tracer:     otel.Tracer(serviceName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// startPublishSpan 开始发布 span.
func (t *sinkTracer) startPublishSpan(ctx context.Context, system, destination, eventType string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, system+".publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", system),
			attribute.String("messaging.destination.name", destination),
			attribute.String("messaging.operation", "publish"),
			attribute.String("saga.event.type", eventType),
		),
	)
}

// injectHeaders 将追踪上下文注入到消息 Headers.
func (t *sinkTracer) injectHeaders(ctx context.Context, headers map[string]string) map[string]string {
	if headers == nil {
		headers = make(map[string]string)
	}
	carrier := &mapCarrier{headers: headers}
	t.propagator.Inject(ctx, carrier)
	return headers
}

// setError 设置 span 错误.
func (t *sinkTracer) setError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// mapCarrier 实现 propagation.TextMapCarrier 接口.
type mapCarrier struct {
	headers map[string]string
}

func (c *mapCarrier) Get(key string) string {
	return c.headers[key]
}

func (c *mapCarrier) Set(key, value string) {
	c.headers[key] = value
}

func (c *mapCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
