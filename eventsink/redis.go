package eventsink

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/sagakit/logger"
)

// RedisSink Redis Stream 事件通道.
//
// 事件通过 XADD 追加到单个 Stream，消费方可使用消费组读取.
// Stream 天然保留追加顺序，适合按 correlation id 回放一次运行.
type RedisSink struct {
	client redis.UniversalClient
	stream string
	closed bool
	mu     sync.RWMutex
	logger logger.Logger
	tracer *sinkTracer
}

// NewRedisSink 创建 Redis Stream 事件通道.
func NewRedisSink(addr, stream string, opts ...Option) (*RedisSink, error) {
	if addr == "" {
		return nil, ErrNoBrokers
	}
	if stream == "" {
		return nil, ErrEmptyTopic
	}

	options := applyOptions(opts)

	client := redis.NewClient(&redis.Options{Addr: addr})

	s := &RedisSink{
		client: client,
		stream: stream,
		logger: options.logger,
	}
	if options.serviceName != "" {
		s.tracer = newSinkTracer(options.serviceName)
	}

	if s.logger != nil {
		s.logger.Debugf("[EventSink] Redis通道启动: addr=%s stream=%s", addr, stream)
	}

	return s, nil
}

// NewRedisSinkWithClient 使用已有客户端创建 Redis Stream 事件通道.
//
// 客户端生命周期由调用方管理，Close 不会关闭它.
func NewRedisSinkWithClient(client redis.UniversalClient, stream string, opts ...Option) (*RedisSink, error) {
	if client == nil {
		return nil, ErrNilConfig
	}
	if stream == "" {
		return nil, ErrEmptyTopic
	}

	options := applyOptions(opts)

	s := &RedisSink{
		client: client,
		stream: stream,
		logger: options.logger,
	}
	if options.serviceName != "" {
		s.tracer = newSinkTracer(options.serviceName)
	}

	return s, nil
}

// Publish 发布事件.
func (s *RedisSink) Publish(ctx context.Context, evt *Event) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSinkClosed
	}

	if err := validateEvent(evt); err != nil {
		return err
	}

	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	// Tracing: 开始 span
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.startPublishSpan(ctx, "redis", s.stream, evt.Type)
		defer span.End()
	}

	values := map[string]any{
		"type":           evt.Type,
		"subject":        evt.Subject,
		"correlation_id": evt.CorrelationID,
		"payload":        payload,
	}
	if evt.UserID != "" {
		values["user_id"] = evt.UserID
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}).Err(); err != nil {
		if s.tracer != nil {
			s.tracer.setError(span, err)
		}
		return errors.Join(ErrPublish, err)
	}

	return nil
}

// Close 关闭 Sink.
func (s *RedisSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.client.Close()
}
