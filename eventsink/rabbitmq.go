package eventsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/sagakit/logger"
)

// RabbitMQSink RabbitMQ 事件通道.
//
// 事件发布到 topic 类型的交换机，routing key 为事件类型，
// 订阅方可按 saga.<sagaType>.* 等模式绑定队列做选择性消费.
type RabbitMQSink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	mu       sync.RWMutex
	closed   atomic.Bool
	confirms chan amqp.Confirmation

	exchange string
	durable  bool
	confirm  bool
	logger   logger.Logger
	tracer   *sinkTracer
}

// NewRabbitMQSink 创建 RabbitMQ 事件通道.
func NewRabbitMQSink(cfg *Config, opts ...Option) (*RabbitMQSink, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.URL == "" {
		return nil, ErrNoBrokers
	}

	options := applyOptions(opts)

	s := &RabbitMQSink{
		exchange: "saga.events",
		durable:  true,
		confirm:  true,
		logger:   options.logger,
	}
	if options.serviceName != "" {
		s.tracer = newSinkTracer(options.serviceName)
	}

	if cfg.RabbitMQ != nil {
		if cfg.RabbitMQ.Exchange != "" {
			s.exchange = cfg.RabbitMQ.Exchange
		}
		s.durable = cfg.RabbitMQ.Durable
		s.confirm = cfg.RabbitMQ.Confirm
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrCreateSink, err)
	}
	s.conn = conn

	if err := s.setupChannel(); err != nil {
		conn.Close()
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debugf("[EventSink] RabbitMQ通道启动: exchange=%s", s.exchange)
	}

	return s, nil
}

func (s *RabbitMQSink) setupChannel() error {
	ch, err := s.conn.Channel()
	if err != nil {
		return errors.Join(ErrCreateSink, err)
	}

	err = ch.ExchangeDeclare(
		s.exchange,
		"topic",
		s.durable,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("声明交换机失败: %w", err)
	}

	if s.confirm {
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			return fmt.Errorf("启用发布确认失败: %w", err)
		}
		s.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 100))
	}

	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()

	return nil
}

// Publish 发布事件.
func (s *RabbitMQSink) Publish(ctx context.Context, evt *Event) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}

	if err := validateEvent(evt); err != nil {
		return err
	}

	value, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	s.mu.RLock()
	ch := s.channel
	s.mu.RUnlock()

	if ch == nil {
		return ErrSinkClosed
	}

	// Tracing: 开始 span
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.startPublishSpan(ctx, "rabbitmq", s.exchange, evt.Type)
		defer span.End()
	}

	headers := map[string]string{
		"event_type":     evt.Type,
		"correlation_id": evt.CorrelationID,
	}
	if evt.UserID != "" {
		headers["user_id"] = evt.UserID
	}
	if s.tracer != nil {
		headers = s.tracer.injectHeaders(ctx, headers)
	}

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		Body:          value,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     evt.Timestamp,
		MessageId:     evt.Subject,
		CorrelationId: evt.CorrelationID,
		Headers:       make(amqp.Table, len(headers)),
	}
	for k, v := range headers {
		publishing.Headers[k] = v
	}

	err = ch.PublishWithContext(
		ctx,
		s.exchange,
		evt.Type,
		false,
		false,
		publishing,
	)
	if err != nil {
		if s.tracer != nil {
			s.tracer.setError(span, err)
		}
		return errors.Join(ErrPublish, err)
	}

	if s.confirm && s.confirms != nil {
		select {
		case confirm := <-s.confirms:
			if !confirm.Ack {
				return fmt.Errorf("%w: 事件被拒绝", ErrPublish)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Close 关闭 Sink.
func (s *RabbitMQSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		s.channel.Close()
	}

	return s.conn.Close()
}
