package eventsink

import (
	"context"
	"errors"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/sagakit/logger"
)

// KafkaSink Kafka 事件通道.
//
// 使用同步发送模式，保证事件可靠投递.
// 内置最佳实践配置：
//   - Idempotent: true (幂等性，保证事件不重复)
//   - RequiredAcks: WaitForAll (等待所有副本确认)
//   - Retry.Max: 3 (最多重试3次)
//   - Compression: Snappy (使用Snappy压缩)
//
// 消息 key 为 saga id，保证同一次运行的事件落入同一分区、保持顺序.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	closed   bool
	mu       sync.RWMutex
	logger   logger.Logger
	tracer   *sinkTracer
}

// NewKafkaSink 创建 Kafka 事件通道.
//
// 参数:
//   - brokers: Kafka 服务器地址列表
//   - topic: 事件写入的主题
//   - opts: 可选配置项
//
// 返回创建的 Sink 实例，使用完毕后需调用 Close 关闭.
func NewKafkaSink(brokers []string, topic string, opts ...Option) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	options := applyOptions(opts)

	config := sarama.NewConfig()
	config.Version = sarama.V3_8_0_0
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Join(ErrCreateSink, err)
	}

	s := &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   options.logger,
	}
	if options.serviceName != "" {
		s.tracer = newSinkTracer(options.serviceName)
	}

	if s.logger != nil {
		s.logger.Debugf("[EventSink] Kafka通道启动: brokers=%v topic=%s", brokers, topic)
	}

	return s, nil
}

// Publish 发布事件.
//
// 同步发送并等待确认，事件信封以 JSON 编码写入消息体，
// 事件类型、correlation id 等元数据写入消息头.
func (s *KafkaSink) Publish(ctx context.Context, evt *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSinkClosed
	}

	if err := validateEvent(evt); err != nil {
		return err
	}

	value, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	// Tracing: 开始 span
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.startPublishSpan(ctx, "kafka", s.topic, evt.Type)
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

	msg := &sarama.ProducerMessage{
		Topic:     s.topic,
		Key:       sarama.StringEncoder(evt.Subject),
		Value:     sarama.ByteEncoder(value),
		Timestamp: evt.Timestamp,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	if _, _, err := s.producer.SendMessage(msg); err != nil {
		if s.tracer != nil {
			s.tracer.setError(span, err)
		}
		return errors.Join(ErrPublish, err)
	}

	return nil
}

// Close 关闭 Sink.
//
// 关闭与 Kafka 的连接，释放资源.
// 关闭后不能再发布事件，重复调用是安全的.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
